package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"orbix/internal/repository"
	"orbix/internal/service"
)

// ErrorResponse represents an error response. Kind is a stable
// machine-readable discriminator; Error is for humans.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code, kind := classifyError(err)
	c.JSON(code, ErrorResponse{Error: err.Error(), Kind: kind})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// classifyError maps service/repository errors to an HTTP status and a
// stable error kind.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"

	// Validation errors
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidVehicleClass),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrUnknownProvider):
		return http.StatusBadRequest, "invalid_request"

	// Lifecycle conflicts
	case errors.Is(err, service.ErrRideUnavailable):
		return http.StatusConflict, "ride_unavailable"
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrAlreadySettled):
		return http.StatusConflict, "already_settled"
	case errors.Is(err, service.ErrAlreadyRated):
		return http.StatusConflict, "already_rated"

	// Authorization on a ride
	case errors.Is(err, service.ErrNotRideDriver),
		errors.Is(err, service.ErrNotRideRider):
		return http.StatusForbidden, "forbidden"

	// Wrong start code: the ride stays accepted.
	case errors.Is(err, service.ErrInvalidOTP):
		return http.StatusUnauthorized, "invalid_otp"

	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"

	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable, "no_driver_available"

	default:
		return http.StatusInternalServerError, "internal"
	}
}
