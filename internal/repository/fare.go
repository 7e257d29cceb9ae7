package repository

import (
	"context"

	"dispatch/internal/domain"
)

// FareRepository reads the externally managed pricing configuration.
type FareRepository interface {
	// GetFareConfig returns the singleton fare table.
	GetFareConfig(ctx context.Context) (*domain.FareConfig, error)

	// GetPeakHour returns the singleton peak-hour configuration.
	GetPeakHour(ctx context.Context) (*domain.PeakHour, error)

	// GetCouponByCode retrieves a coupon by its code.
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
}
