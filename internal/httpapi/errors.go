package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
)

// Error is the body of every non-2xx JSON response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeValidation   = "validation_error"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
	ErrCodeMethod       = "method_not_allowed"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

// writeServiceError maps a service error onto a status code.  Only
// unexpected errors are logged; the rest are ordinary client outcomes.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case service.IsValidation(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
	case service.IsNotFound(err):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, ErrCodeConflict, "concurrent update, retry")
	case errors.Is(err, service.ErrStoreUnavailable):
		logger.Warn("store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage temporarily unavailable")
	default:
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "unexpected server error")
	}
}

func validationMessage(err error) string {
	for _, e := range []error{service.ErrInvalidPointID, service.ErrMissingCodes, service.ErrInvalidScope} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "invalid request"
}
