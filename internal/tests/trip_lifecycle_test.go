package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// fixture wires a TripService against in-memory stores. The nil
// database handle makes the service run its writes directly against
// the injected repositories.
type fixture struct {
	trips     *MockTripRepository
	users     *MockUserRepository
	fares     *MockFareRepository
	events    *MockEventSender
	notifier  *MockNotifier
	locks     *MockLockStore
	locations *MockLocationStore
	expiry    *service.ExpiryScheduler
	fareSvc   *service.FareService
	tripSvc   *service.TripService
}

func newFixture() *fixture {
	f := &fixture{
		trips:     NewMockTripRepository(),
		users:     NewMockUserRepository(),
		fares:     standardFareRepo(),
		events:    NewMockEventSender(),
		notifier:  NewMockNotifier(),
		locks:     NewMockLockStore(),
		locations: NewMockLocationStore(),
		expiry:    service.NewExpiryScheduler(),
	}
	f.fareSvc = service.NewFareService(f.fares, nil)
	f.tripSvc = service.NewTripService(nil, f.trips, f.users, f.fareSvc,
		f.locks, f.locations, f.expiry, f.events, f.notifier)
	return f
}

func (f *fixture) addRider(id string) *domain.User {
	rider := &domain.User{ID: id, Name: "Rider " + id, Role: domain.RoleRider}
	f.users.AddUser(rider)
	return rider
}

func (f *fixture) addDriver(id string, online, available bool) *domain.User {
	driver := &domain.User{
		ID:          id,
		Name:        "Driver " + id,
		Role:        domain.RoleDriver,
		IsOnline:    online,
		IsAvailable: available,
	}
	f.users.AddUser(driver)
	return driver
}

func (f *fixture) addTrip(trip *domain.Trip) *domain.Trip {
	f.trips.AddTrip(trip)
	return trip
}

func (f *fixture) updateStatus(t *testing.T, tripID, actorID string, status domain.TripStatus) *domain.Trip {
	t.Helper()

	trip, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  tripID,
		ActorID: actorID,
		Status:  status,
	})
	if err != nil {
		t.Fatalf("transition to %s: unexpected error: %v", status, err)
	}
	return trip
}

func TestLifecycle_DriverAdvancesToCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, false)
	f.addTrip(&domain.Trip{
		ID:         "trip-1",
		RiderID:    "rider-1",
		DriverID:   "driver-1",
		Status:     domain.TripStatusAccepted,
		AcceptedAt: time.Now(),
	})

	f.updateStatus(t, "trip-1", "driver-1", domain.TripStatusOnTheWay)
	arrived := f.updateStatus(t, "trip-1", "driver-1", domain.TripStatusArrived)
	if arrived.ArrivedAt.IsZero() {
		t.Error("expected ArrivedAt to be set")
	}
	f.updateStatus(t, "trip-1", "driver-1", domain.TripStatusPickedUp)
	started := f.updateStatus(t, "trip-1", "driver-1", domain.TripStatusStarted)
	if started.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	completed, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:            "trip-1",
		ActorID:           "driver-1",
		Status:            domain.TripStatusCompleted,
		ActualDurationMin: 12,
		ActualDistanceM:   4200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completed.Status != domain.TripStatusCompleted {
		t.Errorf("expected status COMPLETED, got %s", completed.Status)
	}
	if completed.FinalFare != 16 {
		t.Errorf("expected final fare 16, got %d", completed.FinalFare)
	}
	if !f.users.GetUser("driver-1").IsAvailable {
		t.Error("expected driver to be available again after completion")
	}
	if f.events.CountFor("rider-1", service.EventTripUpdateStatus) != 5 {
		t.Errorf("expected 5 status events for rider, got %d",
			f.events.CountFor("rider-1", service.EventTripUpdateStatus))
	}
}

func TestLifecycle_OutOfOrderTransitionRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, false)
	f.addTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusAccepted,
	})

	// ARRIVED requires passing through ON_THE_WAY first.
	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "driver-1",
		Status:  domain.TripStatusArrived,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestLifecycle_RoleViolationRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, false)
	f.addTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusAccepted,
	})

	// The edge ACCEPTED -> ON_THE_WAY exists, but only for the driver.
	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "rider-1",
		Status:  domain.TripStatusOnTheWay,
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestLifecycle_OutsiderDriverRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, false)
	f.addDriver("driver-2", true, true)
	f.addTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusAccepted,
	})

	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "driver-2",
		Status:  domain.TripStatusOnTheWay,
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden for a driver not on the trip, got %v", err)
	}
}

func TestLifecycle_DuplicateTerminalRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, true)
	f.addTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusCompleted,
	})

	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:            "trip-1",
		ActorID:           "driver-1",
		Status:            domain.TripStatusCompleted,
		ActualDurationMin: 12,
		ActualDistanceM:   4200,
	})
	if !errors.Is(err, service.ErrDuplicateTransition) {
		t.Errorf("expected ErrDuplicateTransition, got %v", err)
	}
}

func TestLifecycle_UnknownStatusRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, false)
	f.addTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusAccepted,
	})

	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "driver-1",
		Status:  domain.TripStatus("TELEPORTED"),
	})
	if !errors.Is(err, service.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestLifecycle_CompletionRequiresMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, false)
	f.addTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusStarted,
	})

	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "driver-1",
		Status:  domain.TripStatusCompleted,
	})
	if !errors.Is(err, service.ErrMissingTripMetrics) {
		t.Errorf("expected ErrMissingTripMetrics, got %v", err)
	}
}

func TestLifecycle_CancelRequiresReason(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	_, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "rider-1",
		Status:  domain.TripStatusCancelled,
	})
	if !errors.Is(err, service.ErrMissingCancelReason) {
		t.Errorf("expected ErrMissingCancelReason, got %v", err)
	}
}

func TestLifecycle_RiderCancelFromRequested(t *testing.T) {
	t.Parallel()

	f := newFixture()
	rider := f.addRider("rider-1")
	f.addTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	trip, err := f.tripSvc.UpdateStatus(context.Background(), service.UpdateTripStatusRequest{
		TripID:  "trip-1",
		ActorID: "rider-1",
		Status:  domain.TripStatusCancelled,
		Reason:  []string{"Changed my mind"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Status != domain.TripStatusCancelled {
		t.Errorf("expected status CANCELLED, got %s", trip.Status)
	}
	if len(trip.CancellationReason) != 1 || trip.CancellationReason[0] != "Changed my mind" {
		t.Errorf("unexpected cancellation reason: %v", trip.CancellationReason)
	}
	// No driver ever held this trip, so nobody gets charged.
	if rider.OutstandingFee != 0 {
		t.Errorf("expected no outstanding fee, got %d", rider.OutstandingFee)
	}
}
