package postgres

import (
	"context"
	"database/sql"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// SessionRepository is a PostgreSQL implementation of
// repository.SessionRepository.
type SessionRepository struct {
	q Querier
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{q: db}
}

// Open persists a new session with no end time.
func (r *SessionRepository) Open(ctx context.Context, session *domain.OnlineSession) error {
	query := `
		INSERT INTO online_sessions (id, driver_id, started_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.q.ExecContext(ctx, query, session.ID, session.DriverID, session.StartedAt)
	return err
}

// CloseLatestOpen closes the driver's most recent open session. A
// driver that disconnected abruptly may have no open session; that is
// not an error.
func (r *SessionRepository) CloseLatestOpen(ctx context.Context, driverID string, end time.Time) error {
	query := `
		UPDATE online_sessions
		SET ended_at = $2,
		    duration_seconds = EXTRACT(EPOCH FROM ($2 - started_at))::bigint
		WHERE id = (
			SELECT id FROM online_sessions
			WHERE driver_id = $1 AND ended_at IS NULL
			ORDER BY started_at DESC
			LIMIT 1
		)
	`

	_, err := r.q.ExecContext(ctx, query, driverID, end)
	return err
}

// DeleteStale removes sessions that opened before the cutoff and never
// closed.
func (r *SessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM online_sessions WHERE ended_at IS NULL AND started_at < $1`

	result, err := r.q.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// MessageRepository is a PostgreSQL implementation of
// repository.MessageRepository.
type MessageRepository struct {
	q Querier
}

// NewMessageRepository creates a new PostgreSQL message repository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{q: db}
}

// Create persists a new message.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, receiver_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.ReceiverID, msg.Body, msg.CreatedAt)
	return err
}

// Ensure implementations satisfy their interfaces.
var (
	_ repository.SessionRepository = (*SessionRepository)(nil)
	_ repository.MessageRepository = (*MessageRepository)(nil)
)
