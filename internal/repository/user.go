package repository

import (
	"context"

	"dispatch/internal/domain"
)

// UserRepository defines the persistence operations for rider and
// driver accounts.
type UserRepository interface {
	// Create persists a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByPhone retrieves a user by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)

	// SetOnline flips the user's online flag and returns the updated user.
	SetOnline(ctx context.Context, id string, online bool) (*domain.User, error)

	// SetAvailability flips a driver's availability flag.
	SetAvailability(ctx context.Context, id string, available bool) error

	// UpdateLocation stores the user's last known coordinates.
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error

	// AddOutstandingFee increments the rider's carried-forward balance.
	AddOutstandingFee(ctx context.Context, id string, amount int64) error

	// ClearOutstandingFee resets the rider's carried-forward balance to zero.
	ClearOutstandingFee(ctx context.Context, id string) error

	// ListAvailableDrivers returns every driver that is online and available.
	ListAvailableDrivers(ctx context.Context) ([]*domain.User, error)
}
