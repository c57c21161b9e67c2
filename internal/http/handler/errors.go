package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/middleware"
	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

// writeServiceError maps service and repository errors onto the envelope.
// A record owned by another user reports the same 404 as an absent one.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	if verr, ok := service.IsValidation(err); ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request", verr.Fields)
		return
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", resource+" not found", nil)
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case isThrottled(err):
		response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "resource", resource, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func isThrottled(err error) bool {
	_, ok := service.IsThrottled(err)
	return ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large", nil)
			return false
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (security.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
	}
	return id, ok
}
