package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/models"
)

var (
	// ErrUserExists is returned when registering a taken username
	ErrUserExists = errors.New("username already registered")
	// ErrInvalidCredentials is returned for an unknown user or wrong password
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidToken is returned for a missing, expired or forged token
	ErrInvalidToken = errors.New("could not validate credentials")
)

// UserStore persists registered accounts
type UserStore interface {
	CreateUser(username string, passwordHash []byte) (bool, error)
	GetUser(username string) (*models.User, error)
}

// AuthClaims represents JWT claims. The subject is the username.
type AuthClaims struct {
	jwt.RegisteredClaims
}

type contextKey struct{}

// AuthManager handles registration, login and bearer-token checks
type AuthManager struct {
	jwtSecret   []byte
	users       UserStore
	tokenExpiry time.Duration
	rateLimiter *RateLimiter
	now         func() time.Time
}

// RateLimiter implements a sliding-window limit per key
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	limit    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
	}
}

// IsAllowed checks if a request is allowed. A non-positive limit disables
// limiting.
func (rl *RateLimiter) IsAllowed(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Clean old requests
	var validRequests []time.Time
	for _, reqTime := range rl.requests[key] {
		if now.Sub(reqTime) < rl.window {
			validRequests = append(validRequests, reqTime)
		}
	}

	if len(validRequests) >= rl.limit {
		rl.requests[key] = validRequests
		return false
	}
	rl.requests[key] = append(validRequests, now)
	return true
}

// NewAuthManager creates a new authentication manager. loginRateLimit caps
// login attempts per client per minute; 0 disables the cap.
func NewAuthManager(jwtSecret string, tokenExpiry time.Duration, users UserStore, loginRateLimit int) *AuthManager {
	return &AuthManager{
		jwtSecret:   []byte(jwtSecret),
		users:       users,
		tokenExpiry: tokenExpiry,
		rateLimiter: NewRateLimiter(time.Minute, loginRateLimit),
		now:         time.Now,
	}
}

// Register creates an account with a bcrypt password hash
func (am *AuthManager) Register(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	created, err := am.users.CreateUser(username, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if !created {
		return ErrUserExists
	}
	return nil
}

// Login checks the password and issues an access token
func (am *AuthManager) Login(username, password string) (string, error) {
	user, err := am.users.GetUser(username)
	if err != nil {
		if errors.Is(err, metadatastore.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return am.GenerateJWT(user.Username)
}

// AllowLogin reports whether the client may attempt another login
func (am *AuthManager) AllowLogin(clientKey string) bool {
	return am.rateLimiter.IsAllowed(clientKey)
}

// GenerateJWT generates an HS256 token whose subject is the username
func (am *AuthManager) GenerateJWT(username string) (string, error) {
	now := am.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(am.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(am.jwtSecret)
}

// ValidateJWT validates a token and returns the username it was issued to
func (am *AuthManager) ValidateJWT(tokenString string) (string, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return am.jwtSecret, nil
	}, jwt.WithTimeFunc(am.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// AuthMiddleware rejects requests without a valid bearer token for an
// existing user, and stores the username in the request context
func (am *AuthManager) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(w)
			return
		}
		username, err := am.ValidateJWT(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			unauthorized(w)
			return
		}
		if _, err := am.users.GetUser(username); err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
}

// UsernameFromContext returns the authenticated username
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKey{}).(string)
	return username, ok && username != ""
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// ClientIP gets the client IP address
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
