package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hs170703/insightfull/pkg/auth"
	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/models"
)

// Predictor runs the training pipeline for a user
type Predictor interface {
	Predict(username string, req *models.PredictionRequest) (*models.TrainingResult, error)
}

// Options configures the HTTP server
type Options struct {
	Port               string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
}

// Server provides HTTP API endpoints
type Server struct {
	auth      *auth.AuthManager
	predictor Predictor
	store     metadatastore.MetadataStore
	uploads   *Uploader
	opts      Options
	logger    *slog.Logger
	router    chi.Router
	http      *http.Server
}

// NewServer creates a new API server
func NewServer(
	authManager *auth.AuthManager,
	predictor Predictor,
	store metadatastore.MetadataStore,
	uploads *Uploader,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}
	s := &Server{
		auth:      authManager,
		predictor: predictor,
		store:     store,
		uploads:   uploads,
		opts:      opts,
		logger:    logger,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%s", opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(auth.SecurityHeadersMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.AuthMiddleware)
			r.Get("/user/files", s.handleListFiles)
			r.Get("/user/files/{filename}", s.handleGetFile)
			r.Post("/upload", s.handleUpload)
			r.Post("/predict", s.handlePredict)
			r.Get("/user/results", s.handleListResults)
			r.Get("/user/results/{resultID}", s.handleGetResult)
		})
	})

	s.router = r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// currentUser returns the username set by the auth middleware
func currentUser(r *http.Request) string {
	username, _ := auth.UsernameFromContext(r.Context())
	return username
}
