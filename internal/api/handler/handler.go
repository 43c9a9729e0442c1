package handler

import (
	"errors"
	"net/http"

	"ecosakshi/backend/internal/apikey"
	"ecosakshi/backend/internal/lifecycle"
	"ecosakshi/backend/internal/notify"
	"ecosakshi/backend/internal/storage"
)

// Handler carries the services the HTTP layer dispatches into.
type Handler struct {
	Lifecycle *lifecycle.Service
	Keys      *apikey.Service
	Storage   storage.Storage
	Hub       *notify.Hub
	JWTSecret []byte
}

func NewHandler(lc *lifecycle.Service, keys *apikey.Service, s storage.Storage, hub *notify.Hub, jwtSecret []byte) *Handler {
	return &Handler{
		Lifecycle: lc,
		Keys:      keys,
		Storage:   s,
		Hub:       hub,
		JWTSecret: jwtSecret,
	}
}

// errStatus translates engine failures into HTTP status codes. Anything
// unrecognized is an infrastructure fault.
func errStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrNoOpUpdate),
		errors.Is(err, apikey.ErrDuplicateActiveTrial),
		errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrUnauthorized),
		errors.Is(err, apikey.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrInvalidInput),
		errors.Is(err, apikey.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apikey.ErrPaymentVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, apikey.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, apikey.ErrKeyExpiredOrRevoked):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
