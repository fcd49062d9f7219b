package server

import (
	"encoding/json"
	"net/http"
)

type apiErrorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes returned in the JSON error body.
const (
	codeMissingUpload     = "missing_upload"
	codeUploadTooLarge    = "upload_too_large"
	codeInvalidUpload     = "invalid_upload"
	codeInvalidHAR        = "invalid_har"
	codeReviewUnavailable = "review_unavailable"
	codeGenerationFailed  = "generation_failed"
	codeInternal          = "internal"
)

func writeError(w http.ResponseWriter, status int, code string, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErrorBody{Error: apiError{Code: code, Message: message, Details: details}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
