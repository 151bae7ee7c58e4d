package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/dhrubo326/imds/internal/kverr"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// RecoveryMiddleware recovers panics and writes JSON errors
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := kverr.Internal("recovered from panic", fmt.Errorf("%v", rec))
				handleError(w, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// handleError writes an error response to the client
func handleError(w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case kverr.IsNotFound(err):
		statusCode = http.StatusNotFound
	case kverr.IsBadArguments(err):
		statusCode = http.StatusBadRequest
	default:
		statusCode = http.StatusInternalServerError
	}

	response := ErrorResponse{}
	response.Error.Type = string(kverr.TypeOf(err))
	response.Error.Message = err.Error()

	writeJSON(w, statusCode, response)
}

// LoggingMiddleware logs request details
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		log.Printf("admin: %s %s %d", r.Method, r.URL.Path, rw.statusCode)
	})
}

// responseWriter is a custom response writer that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
