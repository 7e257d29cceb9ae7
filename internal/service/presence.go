package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// PresenceService tracks which drivers are online and available and
// maintains their online sessions. It is the only writer of the
// online flag; the lifecycle state machine owns availability.
type PresenceService struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	locationStore redis.LocationStoreInterface
	now           func() time.Time
}

// NewPresenceService creates a new PresenceService. locationStore may
// be nil.
func NewPresenceService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	locationStore redis.LocationStoreInterface,
) *PresenceService {
	return &PresenceService{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		locationStore: locationStore,
		now:           time.Now,
	}
}

// SetOnline marks the user online. A driver going online opens a new
// online session.
func (s *PresenceService) SetOnline(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	user, err := s.userRepo.SetOnline(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	if user.Role == domain.RoleDriver {
		session := &domain.OnlineSession{
			ID:        uuid.New().String(),
			DriverID:  user.ID,
			StartedAt: s.now(),
		}
		if err := s.sessionRepo.Open(ctx, session); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// SetOffline marks the user offline. A driver going offline closes
// their most recent open session; an abrupt disconnect may have left
// none, which is tolerated. The driver also leaves the geo index.
func (s *PresenceService) SetOffline(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	user, err := s.userRepo.SetOnline(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	if user.Role == domain.RoleDriver {
		if err := s.sessionRepo.CloseLatestOpen(ctx, user.ID, s.now()); err != nil {
			return nil, err
		}
		if s.locationStore != nil {
			_ = s.locationStore.RemoveLocation(ctx, user.ID)
		}
	}

	return user, nil
}

// EligibleDrivers returns every online and available driver. Dispatch
// broadcasts to all of them; there is no proximity ranking.
func (s *PresenceService) EligibleDrivers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.ListAvailableDrivers(ctx)
}

// RunSessionSweeper periodically removes sessions that never closed,
// left behind by drivers whose connections dropped without an offline
// event. Blocks until ctx is cancelled.
func (s *PresenceService) RunSessionSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.sessionRepo.DeleteStale(ctx, s.now().Add(-maxAge))
			if err != nil {
				log.Printf("[PRESENCE] session sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("[PRESENCE] removed %d stale online sessions", removed)
			}
		}
	}
}
