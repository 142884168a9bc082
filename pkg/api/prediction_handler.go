package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/models"
)

// handlePredict handles POST /api/predict. Pipeline failures are reported
// in-band with HTTP 200, carrying the message and its error code.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetailResponse(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := s.predictor.Predict(currentUser(r), &req)
	if err != nil {
		pe, ok := models.AsPipelineError(err)
		if !ok {
			pe = models.NewInternalError(err)
		}
		writeInBandError(w, pe.Message, string(pe.Code))
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// handleListResults handles GET /api/user/results
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListResultsByUser(currentUser(r))
	if err != nil {
		s.logger.Error("failed to list results", "error", err)
		writeDetailResponse(w, http.StatusInternalServerError, "Failed to list results")
		return
	}
	if results == nil {
		results = []*models.StoredResult{}
	}
	writeJSONResponse(w, http.StatusOK, results)
}

// handleGetResult handles GET /api/user/results/{resultID}
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.GetResult(currentUser(r), chi.URLParam(r, "resultID"))
	if err != nil {
		if errors.Is(err, metadatastore.ErrNotFound) {
			writeDetailResponse(w, http.StatusNotFound, "Result not found")
			return
		}
		s.logger.Error("failed to get result", "error", err)
		writeDetailResponse(w, http.StatusInternalServerError, "Failed to get result")
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}
