package api

import (
	"errors"
	"net/http"

	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/messaging"

	"gorm.io/gorm"
)

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, kylas.ErrEntityNotFound),
		errors.Is(err, messaging.ErrTemplateNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, kylas.ErrReauthorizationRequired),
		errors.Is(err, kylas.ErrTokenRefreshFailed):
		return http.StatusUnauthorized
	case errors.Is(err, kylas.ErrNotConnected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
