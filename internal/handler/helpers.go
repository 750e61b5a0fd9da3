package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mongshilymom/legalai-engine/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var providerNotFound *domain.ErrProviderNotFound
	var alertNotFound *domain.ErrAlertNotFound
	var noEligible *domain.ErrNoEligibleProvider
	var exhausted *domain.ErrFallbackExhausted
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &unauthorized):
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &providerNotFound):
		writeError(w, http.StatusNotFound, providerNotFound.Error())
	case errors.As(err, &alertNotFound):
		writeError(w, http.StatusNotFound, alertNotFound.Error())
	case errors.As(err, &noEligible):
		writeError(w, http.StatusServiceUnavailable, noEligible.Error())
	case errors.As(err, &exhausted):
		writeError(w, http.StatusBadGateway, exhausted.Error())
	case errors.As(err, &circuitOpen):
		writeError(w, http.StatusServiceUnavailable, circuitOpen.Error())
	case errors.As(err, &timeout):
		writeError(w, http.StatusGatewayTimeout, timeout.Error())
	default:
		logger.Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
