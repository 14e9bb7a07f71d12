package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// apiError is the wire shape for all error responses. Field is set for
// validation failures so the client can highlight the offending input.
type apiError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

func writeFieldError(w http.ResponseWriter, message, field string) {
	writeJSON(w, http.StatusBadRequest, apiError{Message: message, Field: field})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
