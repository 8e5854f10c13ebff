package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/api/middleware"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrInvalidArgument:
		return http.StatusBadRequest
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes a domain error. Internal errors are logged and
// hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s (request %s): %v", r.Method, r.URL.Path, middleware.RequestID(r.Context()), err)
		respondJSONError(w, "internal error", status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

// decodeJSON reads a JSON body into v, answering 400 itself on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// pagination reads limit and offset query parameters, ignoring bad values
func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = l
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = o
	}
	return limit, offset
}
