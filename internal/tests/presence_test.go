package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newPresenceFixture() (*service.PresenceService, *MockUserRepository, *MockSessionRepository, *MockLocationStore) {
	users := NewMockUserRepository()
	sessions := NewMockSessionRepository()
	locations := NewMockLocationStore()
	return service.NewPresenceService(users, sessions, locations), users, sessions, locations
}

func TestSetOnline_DriverOpensSession(t *testing.T) {
	t.Parallel()

	svc, users, sessions, _ := newPresenceFixture()
	users.AddUser(&domain.User{ID: "driver-1", Role: domain.RoleDriver})

	user, err := svc.SetOnline(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !user.IsOnline {
		t.Error("expected driver to be online")
	}
	open := sessions.Sessions()
	if len(open) != 1 {
		t.Fatalf("expected 1 session, got %d", len(open))
	}
	if open[0].DriverID != "driver-1" || !open[0].EndedAt.IsZero() {
		t.Errorf("unexpected session: %+v", open[0])
	}
}

func TestSetOnline_RiderOpensNoSession(t *testing.T) {
	t.Parallel()

	svc, users, sessions, _ := newPresenceFixture()
	users.AddUser(&domain.User{ID: "rider-1", Role: domain.RoleRider})

	if _, err := svc.SetOnline(context.Background(), "rider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions.Sessions()) != 0 {
		t.Error("expected no session for a rider")
	}
}

func TestSetOffline_ClosesLatestSessionAndLeavesGeoIndex(t *testing.T) {
	t.Parallel()

	svc, users, sessions, locations := newPresenceFixture()
	users.AddUser(&domain.User{ID: "driver-1", Role: domain.RoleDriver})
	_ = locations.UpdateLocation(context.Background(), "driver-1", 40.7, -74.0)

	if _, err := svc.SetOnline(context.Background(), "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, err := svc.SetOffline(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.IsOnline {
		t.Error("expected driver to be offline")
	}
	closed := sessions.Sessions()
	if len(closed) != 1 || closed[0].EndedAt.IsZero() {
		t.Fatalf("expected a closed session, got %+v", closed)
	}
	if locations.HasLocation("driver-1") {
		t.Error("expected driver removed from geo index")
	}
}

func TestSetOffline_NoOpenSessionIsNotAnError(t *testing.T) {
	t.Parallel()

	svc, users, _, _ := newPresenceFixture()
	users.AddUser(&domain.User{ID: "driver-1", Role: domain.RoleDriver, IsOnline: true})

	if _, err := svc.SetOffline(context.Background(), "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEligibleDrivers_FiltersOfflineAndBusy(t *testing.T) {
	t.Parallel()

	svc, users, _, _ := newPresenceFixture()
	users.AddUser(&domain.User{ID: "driver-1", Role: domain.RoleDriver, IsOnline: true, IsAvailable: true})
	users.AddUser(&domain.User{ID: "driver-2", Role: domain.RoleDriver, IsOnline: false, IsAvailable: true})
	users.AddUser(&domain.User{ID: "driver-3", Role: domain.RoleDriver, IsOnline: true, IsAvailable: false})
	users.AddUser(&domain.User{ID: "rider-1", Role: domain.RoleRider, IsOnline: true, IsAvailable: true})

	drivers, err := svc.EligibleDrivers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(drivers) != 1 || drivers[0].ID != "driver-1" {
		t.Errorf("expected only driver-1, got %+v", drivers)
	}
}

func TestSessionSweeper_RemovesStaleOpenSessions(t *testing.T) {
	t.Parallel()

	svc, _, sessions, _ := newPresenceFixture()

	_ = sessions.Open(context.Background(), &domain.OnlineSession{
		ID:        "stale",
		DriverID:  "driver-1",
		StartedAt: time.Now().Add(-2 * time.Hour),
	})
	_ = sessions.Open(context.Background(), &domain.OnlineSession{
		ID:        "fresh",
		DriverID:  "driver-2",
		StartedAt: time.Now(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSessionSweeper(ctx, 10*time.Millisecond, time.Hour)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	remaining := sessions.Sessions()
	if len(remaining) != 1 || remaining[0].ID != "fresh" {
		t.Errorf("expected only the fresh session to remain, got %+v", remaining)
	}
}
