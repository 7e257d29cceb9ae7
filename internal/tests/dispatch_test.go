package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newDispatchService(f *fixture, timeout time.Duration) *service.DispatchService {
	return service.NewDispatchService(f.trips, f.users, f.fareSvc, f.expiry,
		f.events, f.notifier, timeout)
}

func validRequest(riderID string) service.RequestTripRequest {
	return service.RequestTripRequest{
		RiderID:            riderID,
		PickupAddress:      "1 Main St",
		PickupLat:          40.7128,
		PickupLng:          -74.0060,
		DropoffAddress:     "99 Broadway",
		DropoffLat:         40.7306,
		DropoffLng:         -73.9352,
		PlannedDurationMin: 12,
		PlannedDistanceM:   4200,
	}
}

func TestRequestTrip_BroadcastsToAvailableDrivers(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, true)
	f.addDriver("driver-2", true, true)
	f.addDriver("driver-3", false, true) // offline
	f.addDriver("driver-4", true, false) // busy

	svc := newDispatchService(f, time.Minute)

	trip, err := svc.RequestTrip(context.Background(), validRequest("rider-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Status != domain.TripStatusRequested {
		t.Errorf("expected status REQUESTED, got %s", trip.Status)
	}
	if trip.EstimatedFare != 16 {
		t.Errorf("expected estimate 16, got %d", trip.EstimatedFare)
	}
	if f.events.CountFor("rider-1", service.EventTripRequested) != 1 {
		t.Error("expected rider to receive a trip_requested event")
	}
	for _, id := range []string{"driver-1", "driver-2"} {
		if f.events.CountFor(id, service.EventTripAvailable) != 1 {
			t.Errorf("expected %s to receive a trip_available event", id)
		}
	}
	for _, id := range []string{"driver-3", "driver-4"} {
		if f.events.CountFor(id, service.EventTripAvailable) != 0 {
			t.Errorf("expected %s to receive no trip_available event", id)
		}
	}

	f.expiry.Stop()
}

func TestRequestTrip_ValidationErrors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	svc := newDispatchService(f, time.Minute)

	cases := []struct {
		name   string
		mutate func(*service.RequestTripRequest)
		want   error
	}{
		{"missing rider", func(r *service.RequestTripRequest) { r.RiderID = "" }, service.ErrInvalidRiderID},
		{"missing pickup", func(r *service.RequestTripRequest) { r.PickupAddress = "" }, service.ErrMissingPickup},
		{"missing dropoff", func(r *service.RequestTripRequest) { r.DropoffAddress = "" }, service.ErrMissingDropoff},
		{"bad pickup coords", func(r *service.RequestTripRequest) { r.PickupLat = 91 }, service.ErrInvalidPickupLocation},
		{"zero pickup coords", func(r *service.RequestTripRequest) { r.PickupLat, r.PickupLng = 0, 0 }, service.ErrInvalidPickupLocation},
		{"bad dropoff coords", func(r *service.RequestTripRequest) { r.DropoffLng = -200 }, service.ErrInvalidDropoffLocation},
		{"missing duration", func(r *service.RequestTripRequest) { r.PlannedDurationMin = 0 }, service.ErrMissingEstimate},
		{"missing distance", func(r *service.RequestTripRequest) { r.PlannedDistanceM = 0 }, service.ErrMissingEstimate},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := validRequest("rider-1")
			tc.mutate(&req)
			_, err := svc.RequestTrip(context.Background(), req)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if f.trips.CountTrips() != 0 {
		t.Errorf("expected no trips created, got %d", f.trips.CountTrips())
	}
}

func TestRequestTrip_ExpiresWhenNobodyAccepts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	svc := newDispatchService(f, 30*time.Millisecond)

	trip, err := svc.RequestTrip(context.Background(), validRequest("rider-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	expired := f.trips.GetTrip(trip.ID)
	if expired.Status != domain.TripStatusCancelled {
		t.Fatalf("expected status CANCELLED, got %s", expired.Status)
	}
	if len(expired.CancellationReason) != 1 || expired.CancellationReason[0] != "No driver available" {
		t.Errorf("unexpected cancellation reason: %v", expired.CancellationReason)
	}
	if f.events.CountFor("rider-1", service.EventTripNoDriverFound) != 1 {
		t.Error("expected rider to receive a trip_no_driver_found event")
	}
}

func TestRequestTrip_AcceptanceBeatsExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addRider("rider-1")
	f.addDriver("driver-1", true, true)
	svc := newDispatchService(f, 40*time.Millisecond)

	trip, err := svc.RequestTrip(context.Background(), validRequest("rider-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.tripSvc.Accept(context.Background(), service.AcceptTripRequest{
		TripID:   trip.ID,
		DriverID: "driver-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Wait past the expiry deadline; a late timer must lose the race.
	time.Sleep(150 * time.Millisecond)

	if got := f.trips.GetTrip(trip.ID).Status; got != domain.TripStatusAccepted {
		t.Errorf("expected status ACCEPTED after expiry deadline, got %s", got)
	}
	if f.events.CountFor("rider-1", service.EventTripNoDriverFound) != 0 {
		t.Error("expected no trip_no_driver_found event after acceptance")
	}
}

func TestExpiryScheduler_ArmDisarm(t *testing.T) {
	t.Parallel()

	scheduler := service.NewExpiryScheduler()
	fired := make(chan struct{}, 1)

	scheduler.Arm("trip-1", 20*time.Millisecond, func() {
		fired <- struct{}{}
	})
	if !scheduler.Armed("trip-1") {
		t.Error("expected trip-1 to be armed")
	}

	if !scheduler.Disarm("trip-1") {
		t.Error("expected disarm to cancel the pending timer")
	}

	select {
	case <-fired:
		t.Error("disarmed timer must not fire")
	case <-time.After(80 * time.Millisecond):
	}

	scheduler.Arm("trip-2", 10*time.Millisecond, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("armed timer did not fire")
	}
	if scheduler.Armed("trip-2") {
		t.Error("expected fired timer to remove itself")
	}
}
