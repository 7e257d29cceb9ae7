package redis

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// LocationStoreInterface defines the interface for the driver geo index.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
}

// PricingCacheInterface defines the interface for the pricing cache.
type PricingCacheInterface interface {
	GetFareConfig(ctx context.Context) (*domain.FareConfig, error)
	SetFareConfig(ctx context.Context, cfg *domain.FareConfig) error
	GetPeakHour(ctx context.Context) (*domain.PeakHour, error)
	SetPeakHour(ctx context.Context, peak *domain.PeakHour) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ PricingCacheInterface  = (*PricingCache)(nil)
)
