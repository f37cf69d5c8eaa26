package main

import (
	"encoding/json"
	"log"
	"net/http"
)

// apiResponse is the JSON envelope every endpoint answers with, success or
// failure.
type apiResponse struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Data       any      `json:"data,omitempty"`
	Message    string   `json:"message,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// apiError is the one failure type service code returns to handlers. Handlers
// never pick status codes ad hoc; they use the constructors below so the
// status mapping stays consistent across the API.
type apiError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: msg}
}

func unauthorized(msg string) *apiError {
	return &apiError{Status: http.StatusUnauthorized, Message: msg}
}

func forbidden(msg string) *apiError {
	return &apiError{Status: http.StatusForbidden, Message: msg}
}

func notFound(msg string) *apiError {
	return &apiError{Status: http.StatusNotFound, Message: msg}
}

func conflict(msg string) *apiError {
	return &apiError{Status: http.StatusConflict, Message: msg}
}

// upstream wraps a store or image-host failure. The cause is logged, never
// sent to the client.
func upstream(msg string, cause error) *apiError {
	if cause != nil {
		log.Printf("[upstream] %s: %v", msg, cause)
	}
	return &apiError{Status: http.StatusInternalServerError, Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		StatusCode: status,
		Success:    true,
		Data:       data,
		Message:    message,
	})
}

func errorJSON(w http.ResponseWriter, err *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		StatusCode: err.Status,
		Success:    false,
		Message:    err.Message,
		Errors:     err.Errors,
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
