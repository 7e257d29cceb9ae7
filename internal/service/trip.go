package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/repository/postgres"
)

// driverLockTTL bounds how long an acceptance may hold a driver's lock.
const driverLockTTL = 10 * time.Second

// TripService owns the trip lifecycle after dispatch: acceptance,
// status transitions, driver location relay and toll adjustments.
// Same-trip races are settled by the store's conditional update; this
// service only decides which transition to attempt.
type TripService struct {
	db                  *sql.DB
	tripRepo            repository.TripRepository
	userRepo            repository.UserRepository
	fareService         *FareService
	lockStore           redis.LockStoreInterface
	locationStore       redis.LocationStoreInterface
	expiry              *ExpiryScheduler
	events              EventSender
	notificationService Notifier
	now                 func() time.Time
}

// NewTripService creates a new TripService. lockStore and
// locationStore may be nil.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	userRepo repository.UserRepository,
	fareService *FareService,
	lockStore redis.LockStoreInterface,
	locationStore redis.LocationStoreInterface,
	expiry *ExpiryScheduler,
	events EventSender,
	notificationService Notifier,
) *TripService {
	return &TripService{
		db:                  db,
		tripRepo:            tripRepo,
		userRepo:            userRepo,
		fareService:         fareService,
		lockStore:           lockStore,
		locationStore:       locationStore,
		expiry:              expiry,
		events:              events,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// withTx runs fn against transaction-scoped repositories. Without a
// database handle the injected repositories are used directly, which
// in-memory stores rely on.
func (s *TripService) withTx(ctx context.Context, fn func(tripRepo repository.TripRepository, userRepo repository.UserRepository) error) error {
	if s.db == nil {
		return fn(s.tripRepo, s.userRepo)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(postgres.NewTripRepositoryWithTx(tx), postgres.NewUserRepositoryWithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// AcceptTripRequest contains the parameters for accepting a trip.
type AcceptTripRequest struct {
	TripID    string
	DriverID  string
	CarID     string
	DriverLat float64
	DriverLng float64
}

// Accept assigns the trip to the driver. Exactly one of the drivers
// racing for the same trip wins: the assignment is a conditional
// update against REQUESTED, and every loser gets ErrTripConflict. The
// driver lock only stops one driver from accepting two trips at once.
func (s *TripService) Accept(ctx context.Context, req AcceptTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.userRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.Role != domain.RoleDriver {
		return nil, ErrForbidden
	}

	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireDriverLock(ctx, driver.ID, driverLockTTL)
		if err != nil {
			log.Printf("[TRIP] driver lock for %s unavailable: %v", driver.ID, err)
		} else if !acquired {
			return nil, ErrDriverBusy
		} else {
			defer func() {
				_ = s.lockStore.ReleaseDriverLock(ctx, driver.ID)
			}()
		}
	}

	now := s.now()
	status := domain.TripStatusAccepted
	update := repository.TripUpdate{
		Status:     &status,
		DriverID:   &req.DriverID,
		AcceptedAt: &now,
	}
	if req.CarID != "" {
		update.CarID = &req.CarID
	}
	if validCoordinates(req.DriverLat, req.DriverLng) {
		update.DriverLat = &req.DriverLat
		update.DriverLng = &req.DriverLng
	}

	var trip *domain.Trip
	err = s.withTx(ctx, func(tripRepo repository.TripRepository, userRepo repository.UserRepository) error {
		var err error
		trip, err = tripRepo.UpdateIf(ctx, req.TripID, domain.TripStatusRequested, update)
		if err != nil {
			return err
		}

		return userRepo.SetAvailability(ctx, driver.ID, false)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTripConflict
		}
		return nil, err
	}

	s.expiry.Disarm(trip.ID)

	rider, err := s.userRepo.GetByID(ctx, trip.RiderID)
	if err != nil {
		log.Printf("[TRIP] loading rider %s after acceptance failed: %v", trip.RiderID, err)
		return trip, nil
	}

	if s.notificationService != nil {
		s.notificationService.Notify("Trip Accepted",
			fmt.Sprintf("%s has accepted your trip", driver.Name), rider.ID)
		s.notificationService.Notify("Trip Accepted",
			fmt.Sprintf("You accepted the trip from %s", rider.Name), driver.ID)
	}

	if s.events != nil {
		s.events.SendToUser(rider.ID, EventTripAccepted, OK("Your trip has been accepted", map[string]any{
			"trip":   tripPayload(trip),
			"driver": userPayload(driver),
		}))
		s.events.SendToUser(driver.ID, EventTripAccepted, OK("You accepted the trip", map[string]any{
			"trip":  tripPayload(trip),
			"rider": userPayload(rider),
		}))
	}

	return trip, nil
}

// UpdateTripStatusRequest contains the parameters for a status change.
type UpdateTripStatusRequest struct {
	TripID  string
	ActorID string
	Status  domain.TripStatus
	Reason  []string

	// Reported by the driver when completing the trip.
	ActualDurationMin float64
	ActualDistanceM   float64
}

// UpdateStatus moves the trip along its lifecycle. The transition is
// validated against the lifecycle table and the actor's role, extra
// charges are computed from elapsed time, and the write is conditional
// on the status the actor saw, so a concurrent change surfaces as
// ErrTripConflict instead of a lost update.
func (s *TripService) UpdateStatus(ctx context.Context, req UpdateTripStatusRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.ActorID == "" {
		return nil, ErrInvalidUserID
	}

	actor, err := s.userRepo.GetByID(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status == req.Status {
		return nil, ErrDuplicateTransition
	}
	if !domain.KnownStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	edgeExists, roleAllowed := domain.AllowedTransition(trip.Status, req.Status, actor.Role)
	if !edgeExists {
		return nil, ErrInvalidTransition
	}
	if !roleAllowed {
		return nil, ErrForbidden
	}

	// The actor must be a party to this trip, not merely hold the role.
	switch actor.Role {
	case domain.RoleRider:
		if actor.ID != trip.RiderID {
			return nil, ErrForbidden
		}
	case domain.RoleDriver:
		if actor.ID != trip.DriverID {
			return nil, ErrForbidden
		}
	}

	now := s.now()
	newStatus := req.Status
	update := repository.TripUpdate{Status: &newStatus}

	var riderCharge int64

	switch newStatus {
	case domain.TripStatusArrived:
		update.ArrivedAt = &now

	case domain.TripStatusPickedUp:
		if charge := domain.CalculateExtraCharge(domain.ExtraChargeDriverWaiting, trip.ArrivedAt, now); charge > 0 {
			total := trip.ExtraCharge + charge
			update.ExtraCharge = &total
		}

	case domain.TripStatusStarted:
		update.StartedAt = &now

	case domain.TripStatusCompleted:
		if req.ActualDurationMin <= 0 || req.ActualDistanceM <= 0 {
			return nil, ErrMissingTripMetrics
		}

		rider, err := s.userRepo.GetByID(ctx, trip.RiderID)
		if err != nil {
			return nil, err
		}

		finalFare, err := s.fareService.Settle(ctx, req.ActualDurationMin, req.ActualDistanceM,
			trip.TollFee, trip.ExtraCharge, rider.OutstandingFee)
		if err != nil {
			return nil, err
		}

		update.ActualDurationMin = &req.ActualDurationMin
		update.ActualDistanceM = &req.ActualDistanceM
		update.CompletedAt = &now
		update.FinalFare = &finalFare

	case domain.TripStatusCancelled:
		if len(req.Reason) == 0 {
			return nil, ErrMissingCancelReason
		}
		update.CancellationReason = req.Reason

		if trip.Status == domain.TripStatusOnTheWay {
			riderCharge = domain.CalculateExtraCharge(domain.ExtraChargeLateCancellation, trip.AcceptedAt, now)
		}

	case domain.TripStatusNoShow:
		riderCharge = domain.CalculateExtraCharge(domain.ExtraChargeNoShow, trip.ArrivedAt, now)
	}

	if riderCharge > 0 {
		total := trip.ExtraCharge + riderCharge
		update.ExtraCharge = &total
	}

	var updated *domain.Trip
	err = s.withTx(ctx, func(tripRepo repository.TripRepository, userRepo repository.UserRepository) error {
		var err error
		updated, err = tripRepo.UpdateIf(ctx, trip.ID, trip.Status, update)
		if err != nil {
			return err
		}

		// Cancellation and no-show fees carry forward on the rider's
		// balance until their next completed trip settles them.
		if riderCharge > 0 {
			if err := userRepo.AddOutstandingFee(ctx, trip.RiderID, riderCharge); err != nil {
				return err
			}
		}

		if newStatus == domain.TripStatusCompleted {
			if err := userRepo.ClearOutstandingFee(ctx, trip.RiderID); err != nil {
				return err
			}
		}

		if newStatus.IsTerminal() && trip.DriverID != "" {
			if err := userRepo.SetAvailability(ctx, trip.DriverID, true); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTripConflict
		}
		return nil, err
	}

	if newStatus == domain.TripStatusCancelled && trip.Status == domain.TripStatusRequested {
		s.expiry.Disarm(trip.ID)
	}

	s.notifyStatusChange(updated)

	return updated, nil
}

// statusMessages carries the per-party wording for each lifecycle
// status change.
var statusMessages = map[domain.TripStatus]struct {
	title  string
	rider  string
	driver string
}{
	domain.TripStatusOnTheWay: {
		title:  "Driver On The Way",
		rider:  "Your driver is on the way",
		driver: "You are on the way to the rider",
	},
	domain.TripStatusArrived: {
		title:  "Driver Arrived",
		rider:  "Your driver has arrived",
		driver: "You have arrived at the pickup location",
	},
	domain.TripStatusPickedUp: {
		title:  "Picked Up",
		rider:  "You've been picked up",
		driver: "You have picked up the rider",
	},
	domain.TripStatusStarted: {
		title:  "Trip Started",
		rider:  "Your trip has started",
		driver: "The trip has started",
	},
	domain.TripStatusCompleted: {
		title:  "Trip Completed",
		rider:  "Your trip has been completed successfully",
		driver: "You have successfully completed the trip",
	},
	domain.TripStatusCancelled: {
		title:  "Trip Cancelled",
		rider:  "Your trip has been cancelled",
		driver: "The trip has been cancelled",
	},
	domain.TripStatusNoShow: {
		title:  "No Show",
		rider:  "You are marked as no show. You will be charged a fee",
		driver: "The user is marked as no show",
	},
}

func (s *TripService) notifyStatusChange(trip *domain.Trip) {
	msg, ok := statusMessages[trip.Status]
	if !ok {
		return
	}

	payload := tripPayload(trip)

	if s.notificationService != nil {
		s.notificationService.Notify(msg.title, msg.rider, trip.RiderID)
	}
	if s.events != nil {
		s.events.SendToUser(trip.RiderID, EventTripUpdateStatus, OK(msg.rider, payload))
	}

	if trip.DriverID == "" {
		return
	}

	if s.notificationService != nil {
		s.notificationService.Notify(msg.title, msg.driver, trip.DriverID)
	}
	if s.events != nil {
		s.events.SendToUser(trip.DriverID, EventTripUpdateStatus, OK(msg.driver, payload))
	}
}

// UpdateDriverLocationRequest contains the parameters for a live
// position update.
type UpdateDriverLocationRequest struct {
	TripID   string
	DriverID string
	Lat      float64
	Lng      float64
}

// UpdateDriverLocation relays the driver's position to the trip record,
// the driver's profile, the geo index and the rider's connection.
func (s *TripService) UpdateDriverLocation(ctx context.Context, req UpdateDriverLocationRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !validCoordinates(req.Lat, req.Lng) {
		return nil, ErrInvalidLocation
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != req.DriverID {
		return nil, ErrForbidden
	}
	if trip.Status.IsTerminal() {
		return nil, ErrTripConflict
	}

	updated, err := s.tripRepo.UpdateDriverLocation(ctx, trip.ID, req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng); err != nil {
		return nil, err
	}

	if s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng); err != nil {
			log.Printf("[TRIP] geo index update for driver %s failed: %v", req.DriverID, err)
		}
	}

	if s.events != nil {
		s.events.SendToUser(trip.RiderID, EventTripDriverLocationUpdate, OK("Driver location updated", LocationPayload{
			TripID:   trip.ID,
			DriverID: req.DriverID,
			Lat:      req.Lat,
			Lng:      req.Lng,
		}))
	}

	return updated, nil
}

// AdjustTollFee adds delta to the trip's toll fee; the store clamps the
// result at zero. Tolls fold into the final fare at completion.
func (s *TripService) AdjustTollFee(ctx context.Context, tripID string, delta int64) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	return s.tripRepo.AdjustTollFee(ctx, tripID, delta)
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	return s.tripRepo.GetByID(ctx, tripID)
}
