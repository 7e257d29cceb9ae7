package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// SessionRepository defines the persistence operations for driver
// online sessions.
type SessionRepository interface {
	// Open persists a new session with no end time.
	Open(ctx context.Context, session *domain.OnlineSession) error

	// CloseLatestOpen closes the driver's most recent open session,
	// recording its duration. Closing when no open session exists is a
	// no-op: drivers that disconnect abruptly may have none.
	CloseLatestOpen(ctx context.Context, driverID string, end time.Time) error

	// DeleteStale removes sessions that opened before the cutoff and
	// never closed, returning how many were removed.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageRepository persists chat messages exchanged over the
// real-time channel.
type MessageRepository interface {
	// Create persists a new message.
	Create(ctx context.Context, msg *domain.Message) error
}
