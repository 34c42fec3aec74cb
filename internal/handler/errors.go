package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/service"
)

// writeServiceError maps a service error to its HTTP status and envelope.
// Unknown errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		message := "Invalid input"
		if errors.Is(verr.Err, domain.ErrDuplicateEmail) {
			message = "Email already registered"
		} else if errors.Is(verr.Err, service.ErrPasswordMismatch) {
			message = "Passwords do not match"
		}
		writeFieldErrors(w, message, verr.Fields)

	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "No active account found with the given credentials")
	case errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidToken, "Token is invalid")
	case errors.Is(err, service.ErrNotStaff):
		writeError(w, http.StatusForbidden, ErrCodePermissionDenied, "Staff privileges required")

	case errors.Is(err, service.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidReference, "Invalid or expired link")
	case errors.Is(err, service.ErrInvalidDuration):
		writeFieldErrors(w, "Invalid duration", map[string]string{"days": "must be 1, 2 or 7"})
	case errors.Is(err, service.ErrEmptyPatch):
		badRequest(w, "No fields to update")

	case errors.Is(err, service.ErrAccountNotFound):
		notFound(w, "User not found")
	case errors.Is(err, service.ErrShareLinkNotFound):
		notFound(w, "Share link not found")
	case errors.Is(err, service.ErrShareLinkExpired):
		writeError(w, http.StatusGone, ErrCodeGone, "Share link has expired")

	default:
		logger.Error().Err(err).Msg("request failed")
		internalError(w)
	}
}
