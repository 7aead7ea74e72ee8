package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the booking core. Services return these (possibly
// wrapped with %w) and handlers translate them to HTTP status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("resource conflict")
	ErrForbidden = errors.New("forbidden")

	// Permission catalog
	ErrInvalidPermission = errors.New("unknown permission name")
	ErrCatalogOverflow   = errors.New("permission catalog overflow")
	ErrScopeMismatch     = errors.New("role and membership scopes differ")

	// Calendar
	ErrOutOfWindow = errors.New("time range outside opening time window")
	ErrMisaligned  = errors.New("time range not aligned to reservation blocks")

	// Booking
	ErrNotReservable           = errors.New("location is not reservable")
	ErrReservationTooShort     = errors.New("reservation shorter than minimum length")
	ErrReservationTooLong      = errors.New("reservation longer than maximum length")
	ErrCapacityExceeded        = errors.New("opening time capacity exceeded")
	ErrAlreadyReserved         = errors.New("profile already holds an overlapping reservation")
	ErrContention              = errors.New("admission serialization timed out")
	ErrInvalidReservationState = errors.New("invalid reservation state transition")

	// Request payloads
	ErrInvalidInput = errors.New("invalid input")
)

// HTTPStatus maps a core error to the status code the API layer should emit.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrAlreadyReserved),
		errors.Is(err, ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, ErrContention):
		// Transient; clients may retry.
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidPermission),
		errors.Is(err, ErrScopeMismatch),
		errors.Is(err, ErrOutOfWindow),
		errors.Is(err, ErrMisaligned),
		errors.Is(err, ErrNotReservable),
		errors.Is(err, ErrReservationTooShort),
		errors.Is(err, ErrReservationTooLong),
		errors.Is(err, ErrInvalidReservationState),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the error is transient and safe to retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrContention)
}
