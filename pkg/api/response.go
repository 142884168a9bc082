package api

import (
	"encoding/json"
	"net/http"
)

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeDetailResponse writes an HTTP error as {"detail": message}
func writeDetailResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]string{"detail": message})
}

// writeInBandError reports a failed operation with HTTP 200 and an "error"
// field, the contract the upload and predict clients rely on
func writeInBandError(w http.ResponseWriter, message string, code string) {
	body := map[string]string{"error": message}
	if code != "" {
		body["error_code"] = code
	}
	writeJSONResponse(w, http.StatusOK, body)
}
