package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestAccept_AssignsDriverAndCar(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, true)
	f.addTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	trip, err := f.tripSvc.Accept(context.Background(), service.AcceptTripRequest{
		TripID:    "trip-1",
		DriverID:  "driver-1",
		CarID:     "car-1",
		DriverLat: 40.0,
		DriverLng: -73.9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Status != domain.TripStatusAccepted {
		t.Errorf("expected status ACCEPTED, got %s", trip.Status)
	}
	if trip.DriverID != "driver-1" || trip.CarID != "car-1" {
		t.Errorf("expected driver-1/car-1, got %s/%s", trip.DriverID, trip.CarID)
	}
	if trip.AcceptedAt.IsZero() {
		t.Error("expected AcceptedAt to be set")
	}
	if f.users.GetUser("driver-1").IsAvailable {
		t.Error("expected driver to be unavailable while holding a trip")
	}
	if f.events.CountFor("rider-1", service.EventTripAccepted) != 1 {
		t.Error("expected rider to receive a trip_accepted event")
	}
	if f.events.CountFor("driver-1", service.EventTripAccepted) != 1 {
		t.Error("expected driver to receive a trip_accepted event")
	}
}

func TestAccept_ExactlyOneDriverWins(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	const drivers = 8
	for i := 0; i < drivers; i++ {
		f.addDriver(fmt.Sprintf("driver-%d", i), true, true)
	}

	var wg sync.WaitGroup
	results := make([]error, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.tripSvc.Accept(context.Background(), service.AcceptTripRequest{
				TripID:   "trip-1",
				DriverID: fmt.Sprintf("driver-%d", i),
			})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, service.ErrTripConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly one winning driver, got %d", wins)
	}
	if conflicts != drivers-1 {
		t.Errorf("expected %d conflicts, got %d", drivers-1, conflicts)
	}

	trip := f.trips.GetTrip("trip-1")
	if trip.Status != domain.TripStatusAccepted {
		t.Errorf("expected status ACCEPTED, got %s", trip.Status)
	}
	winner := f.users.GetUser(trip.DriverID)
	if winner == nil {
		t.Fatal("winning driver not found")
	}
	if winner.IsAvailable {
		t.Error("expected winning driver to be unavailable")
	}
}

func TestAccept_AlreadyAcceptedTripConflicts(t *testing.T) {
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

	_, err := f.tripSvc.Accept(context.Background(), service.AcceptTripRequest{
		TripID:   "trip-1",
		DriverID: "driver-2",
	})
	if !errors.Is(err, service.ErrTripConflict) {
		t.Errorf("expected ErrTripConflict, got %v", err)
	}
}

func TestAccept_DriverLockRejectsParallelAccept(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, true)
	f.addTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	// Another acceptance by the same driver is in flight.
	if _, err := f.locks.AcquireDriverLock(context.Background(), "driver-1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.tripSvc.Accept(context.Background(), service.AcceptTripRequest{
		TripID:   "trip-1",
		DriverID: "driver-1",
	})
	if !errors.Is(err, service.ErrDriverBusy) {
		t.Errorf("expected ErrDriverBusy, got %v", err)
	}
}

func TestAccept_RiderCannotAccept(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	_, err := f.tripSvc.Accept(context.Background(), service.AcceptTripRequest{
		TripID:   "trip-1",
		DriverID: "rider-1",
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
