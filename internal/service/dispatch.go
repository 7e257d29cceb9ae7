package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DefaultRequestTimeout is how long a trip waits for a driver before
// it is auto-cancelled.
const DefaultRequestTimeout = 3 * time.Minute

// noDriverReason is recorded on trips cancelled by the expiry timer.
const noDriverReason = "No driver available"

// DispatchService creates trip requests and fans them out to eligible
// drivers. Every request is armed with an expiry timer; acceptance
// disarms it, and a timer that fires anyway loses the race at the data
// layer, not here.
type DispatchService struct {
	tripRepo            repository.TripRepository
	userRepo            repository.UserRepository
	fareService         *FareService
	expiry              *ExpiryScheduler
	events              EventSender
	notificationService Notifier
	requestTimeout      time.Duration
	now                 func() time.Time
}

// NewDispatchService creates a new DispatchService. A non-positive
// requestTimeout falls back to DefaultRequestTimeout.
func NewDispatchService(
	tripRepo repository.TripRepository,
	userRepo repository.UserRepository,
	fareService *FareService,
	expiry *ExpiryScheduler,
	events EventSender,
	notificationService Notifier,
	requestTimeout time.Duration,
) *DispatchService {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	return &DispatchService{
		tripRepo:            tripRepo,
		userRepo:            userRepo,
		fareService:         fareService,
		expiry:              expiry,
		events:              events,
		notificationService: notificationService,
		requestTimeout:      requestTimeout,
		now:                 time.Now,
	}
}

// RequestTripRequest contains the parameters for requesting a trip.
type RequestTripRequest struct {
	RiderID            string
	PickupAddress      string
	PickupLat          float64
	PickupLng          float64
	DropoffAddress     string
	DropoffLat         float64
	DropoffLng         float64
	PlannedDurationMin float64
	PlannedDistanceM   float64
	CouponCode         string
}

// RequestTrip creates a trip in REQUESTED state, estimates its fare,
// notifies the rider, broadcasts the request to every online and
// available driver, and arms the expiry timer.
func (s *DispatchService) RequestTrip(ctx context.Context, req RequestTripRequest) (*domain.Trip, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.PickupAddress == "" {
		return nil, ErrMissingPickup
	}
	if req.DropoffAddress == "" {
		return nil, ErrMissingDropoff
	}
	if !validCoordinates(req.PickupLat, req.PickupLng) {
		return nil, ErrInvalidPickupLocation
	}
	if !validCoordinates(req.DropoffLat, req.DropoffLng) {
		return nil, ErrInvalidDropoffLocation
	}
	if req.PlannedDurationMin <= 0 || req.PlannedDistanceM <= 0 {
		return nil, ErrMissingEstimate
	}

	rider, err := s.userRepo.GetByID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}

	estimate, err := s.fareService.Estimate(ctx, req.PlannedDurationMin, req.PlannedDistanceM, req.CouponCode)
	if err != nil {
		return nil, err
	}

	trip := &domain.Trip{
		ID:                 uuid.New().String(),
		RiderID:            rider.ID,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		DropoffAddress:     req.DropoffAddress,
		DropoffLat:         req.DropoffLat,
		DropoffLng:         req.DropoffLng,
		PlannedDurationMin: req.PlannedDurationMin,
		PlannedDistanceM:   req.PlannedDistanceM,
		EstimatedFare:      estimate,
		Status:             domain.TripStatusRequested,
		PeakApplied:        s.fareService.PeakActive(ctx),
		CouponApplied:      req.CouponCode != "",
		CreatedAt:          s.now(),
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		s.notificationService.Notify("Trip Requested", "Looking for a driver near you", rider.ID)
	}

	payload := tripPayload(trip)
	if s.events != nil {
		s.events.SendToUser(rider.ID, EventTripRequested, OK("Trip requested", payload))
	}

	s.broadcastToDrivers(ctx, payload)

	s.expiry.Arm(trip.ID, s.requestTimeout, func() {
		s.expireTrip(trip.ID)
	})

	return trip, nil
}

// broadcastToDrivers offers the trip to every eligible driver. No
// drivers online is not an error: the request simply waits out its
// timer.
func (s *DispatchService) broadcastToDrivers(ctx context.Context, payload TripPayload) {
	drivers, err := s.userRepo.ListAvailableDrivers(ctx)
	if err != nil {
		log.Printf("[DISPATCH] listing available drivers for trip %s failed: %v", payload.ID, err)
		return
	}

	if s.events == nil {
		return
	}

	for _, driver := range drivers {
		s.events.SendToUser(driver.ID, EventTripAvailable, OK("New trip available", payload))
	}
}

// expireTrip cancels a trip nobody accepted. The cancel is a single
// conditional update against REQUESTED, so a driver whose acceptance
// commits first wins and the expiry becomes a silent no-op.
func (s *DispatchService) expireTrip(tripID string) {
	ctx := context.Background()

	status := domain.TripStatusCancelled
	trip, err := s.tripRepo.UpdateIf(ctx, tripID, domain.TripStatusRequested, repository.TripUpdate{
		Status:             &status,
		CancellationReason: []string{noDriverReason},
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return
		}
		log.Printf("[DISPATCH] expiring trip %s failed: %v", tripID, err)
		return
	}

	if s.notificationService != nil {
		s.notificationService.Notify("No Driver Found", "No driver is available for your trip right now", trip.RiderID)
	}
	if s.events != nil {
		s.events.SendToUser(trip.RiderID, EventTripNoDriverFound, OK("No driver available", tripPayload(trip)))
	}
}

// validCoordinates reports whether lat and lng form a usable position.
func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 && !(lat == 0 && lng == 0)
}
