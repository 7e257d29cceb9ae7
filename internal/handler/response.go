package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	c.JSON(mapErrorToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrMissingPickup),
		errors.Is(err, service.ErrMissingDropoff),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDropoffLocation),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMissingEstimate),
		errors.Is(err, service.ErrMissingTripMetrics),
		errors.Is(err, service.ErrMissingCancelReason),
		errors.Is(err, service.ErrCouponInvalid),
		errors.Is(err, service.ErrMissingChatFields):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrTripConflict),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrDuplicateTransition):
		return http.StatusConflict

	// Lifecycle errors
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}
