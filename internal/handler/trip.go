package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// TripHandler handles HTTP requests for trips. The lifecycle itself
// runs over the real-time channel; these endpoints cover reads and the
// toll adjustments reported outside it.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// TripResponse is the HTTP response for trip data.
type TripResponse struct {
	ID            string   `json:"id"`
	RiderID       string   `json:"rider_id"`
	DriverID      string   `json:"driver_id,omitempty"`
	CarID         string   `json:"car_id,omitempty"`
	Status        string   `json:"status"`
	EstimatedFare int64    `json:"estimated_fare"`
	TollFee       int64    `json:"toll_fee"`
	FinalFare     int64    `json:"final_fare,omitempty"`
	ExtraCharge   int64    `json:"extra_charge,omitempty"`
	Reason        []string `json:"cancellation_reason,omitempty"`
}

func tripResponse(trip *domain.Trip) TripResponse {
	return TripResponse{
		ID:            trip.ID,
		RiderID:       trip.RiderID,
		DriverID:      trip.DriverID,
		CarID:         trip.CarID,
		Status:        string(trip.Status),
		EstimatedFare: trip.EstimatedFare,
		TollFee:       trip.TollFee,
		FinalFare:     trip.FinalFare,
		ExtraCharge:   trip.ExtraCharge,
		Reason:        trip.CancellationReason,
	}
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tripResponse(trip))
}

// AdjustTollRequest is the HTTP request body for a toll adjustment.
type AdjustTollRequest struct {
	Delta int64 `json:"delta"`
}

// AdjustToll handles POST /v1/trips/:id/toll
func (h *TripHandler) AdjustToll(c *gin.Context) {
	var req AdjustTollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.AdjustTollFee(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tripResponse(trip))
}
