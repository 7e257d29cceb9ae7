package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// TripUpdate names the trip fields a conditional update may set. Nil
// pointers leave the column untouched.
type TripUpdate struct {
	Status             *domain.TripStatus
	DriverID           *string
	CarID              *string
	DriverLat          *float64
	DriverLng          *float64
	AcceptedAt         *time.Time
	ArrivedAt          *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	ActualDurationMin  *float64
	ActualDistanceM    *float64
	FinalFare          *int64
	ExtraCharge        *int64
	CancellationReason []string
}

// TripRepository defines the persistence operations for trips.
//
// All status mutations go through UpdateIf so that same-trip races are
// resolved at the data layer: the update applies only while the trip's
// status still equals the expected one, and a mismatch (or a missing
// trip) reports ErrConflict without writing anything. Plain
// read-modify-write of trip status is deliberately not offered.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// UpdateIf applies update to the trip only if its status still
	// equals expectedStatus, returning the updated trip. Returns
	// ErrConflict when the condition no longer holds.
	UpdateIf(ctx context.Context, id string, expectedStatus domain.TripStatus, update TripUpdate) (*domain.Trip, error)

	// UpdateDriverLocation sets the trip's live driver coordinates.
	UpdateDriverLocation(ctx context.Context, id string, lat, lng float64) (*domain.Trip, error)

	// AdjustTollFee adds delta to the trip's toll fee, clamping the
	// result at zero, and returns the updated trip.
	AdjustTollFee(ctx context.Context, id string, delta int64) (*domain.Trip, error)
}
