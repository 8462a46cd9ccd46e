// Package apperr holds the error kinds shared by the catalog sync and the
// checkout path. Callers match them with errors.Is; causes are kept with %w.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrSourceUnavailable means the ERP could not be reached or a query failed.
	// It aborts the current sync step only.
	ErrSourceUnavailable = errors.New("source inventory unavailable")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")

	ErrEmptyCart           = errors.New("cart is empty")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidTransition   = errors.New("invalid order status transition")

	ErrSyncInProgress = errors.New("synchronization already in progress")
)

// HTTPStatus maps an error kind to the status code handlers respond with.
// The first matching kind wins, so causes are checked before wrappers.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
