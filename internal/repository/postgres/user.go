package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// UserRepository is a PostgreSQL implementation of repository.UserRepository.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// NewUserRepositoryWithTx creates a user repository using a transaction.
func NewUserRepositoryWithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, name, phone, role, is_online, is_available,
	lat, lng, outstanding_fee, created_at`

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		user.Role,
		user.IsOnline,
		user.IsAvailable,
		user.Lat,
		user.Lng,
		user.OutstandingFee,
		user.CreatedAt,
	)

	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`

	user, err := scanUser(r.q.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// SetOnline flips the user's online flag and returns the updated user.
func (r *UserRepository) SetOnline(ctx context.Context, id string, online bool) (*domain.User, error) {
	query := `
		UPDATE users SET is_online = $1 WHERE id = $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRowContext(ctx, query, online, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// SetAvailability flips a driver's availability flag.
func (r *UserRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	return r.exec(ctx, `UPDATE users SET is_available = $1 WHERE id = $2`, available, id)
}

// UpdateLocation stores the user's last known coordinates.
func (r *UserRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	return r.exec(ctx, `UPDATE users SET lat = $1, lng = $2 WHERE id = $3`, lat, lng, id)
}

// AddOutstandingFee increments the rider's carried-forward balance.
func (r *UserRepository) AddOutstandingFee(ctx context.Context, id string, amount int64) error {
	return r.exec(ctx, `UPDATE users SET outstanding_fee = outstanding_fee + $1 WHERE id = $2`, amount, id)
}

// ClearOutstandingFee resets the rider's carried-forward balance to zero.
func (r *UserRepository) ClearOutstandingFee(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET outstanding_fee = 0 WHERE id = $1`, id)
}

// ListAvailableDrivers returns every driver that is online and available.
func (r *UserRepository) ListAvailableDrivers(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND is_online = TRUE AND is_available = TRUE
	`

	rows, err := r.q.QueryContext(ctx, query, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.User
	for rows.Next() {
		driver, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}

	return drivers, rows.Err()
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Role,
		&user.IsOnline,
		&user.IsAvailable,
		&user.Lat,
		&user.Lng,
		&user.OutstandingFee,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Ensure UserRepository implements repository.UserRepository.
var _ repository.UserRepository = (*UserRepository)(nil)
