// catalog-service/internal/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
)

// Machine-readable codes carried by authentication failures.
const (
	CodeTokenMissing = "token_missing"
	CodeTokenInvalid = "token_invalid"
	CodeTokenExpired = "token_expired"
	CodeForbidden    = "forbidden"
	CodeRateLimited  = "rate_limited"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool                `json:"success"`
	Data       any                 `json:"data,omitempty"`
	Message    string              `json:"message,omitempty"`
	Code       string              `json:"code,omitempty"`
	Errors     []domain.FieldError `json:"errors,omitempty"`
	Pagination *store.Pagination   `json:"pagination,omitempty"`
}

// responder carries the JSON helpers shared by handlers and middleware.
type responder struct {
	logger *slog.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, r *http.Request, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
	}
}

func (h responder) respondSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	h.respondJSON(w, r, status, Envelope{Success: true, Message: message, Data: data})
}

func (h responder) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, Envelope{Message: message})
}

func (h responder) respondCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.respondJSON(w, r, status, Envelope{Code: code, Message: message})
}

// respondInvalid reports validation failures, or a 500 for anything else the
// validator returned.
func (h responder) respondInvalid(w http.ResponseWriter, r *http.Request, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		h.respondJSON(w, r, http.StatusBadRequest, Envelope{Message: "Validation errors", Errors: verrs})
		return
	}
	h.logger.ErrorContext(r.Context(), "Validator failed unexpectedly", slog.String("error", err.Error()))
	h.respondError(w, r, http.StatusInternalServerError, "Error validating request")
}

// decodeJSON reads the request body into dst and answers the request itself
// when the body is unusable.
func (h responder) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
