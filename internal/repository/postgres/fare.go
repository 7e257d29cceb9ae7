package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// FareRepository is a PostgreSQL implementation of repository.FareRepository.
// Fare and peak-hour configuration are managed outside the engine; this
// repository only reads them.
type FareRepository struct {
	q Querier
}

// NewFareRepository creates a new PostgreSQL fare repository.
func NewFareRepository(db *sql.DB) *FareRepository {
	return &FareRepository{q: db}
}

// GetFareConfig returns the singleton fare table.
func (r *FareRepository) GetFareConfig(ctx context.Context) (*domain.FareConfig, error) {
	query := `SELECT base_fare, fare_per_km, fare_per_min, min_fare FROM fare_configs LIMIT 1`

	var cfg domain.FareConfig
	err := r.q.QueryRowContext(ctx, query).Scan(
		&cfg.BaseFare,
		&cfg.FarePerKm,
		&cfg.FarePerMin,
		&cfg.MinFare,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &cfg, nil
}

// GetPeakHour returns the singleton peak-hour configuration with its
// time-of-day ranges.
func (r *FareRepository) GetPeakHour(ctx context.Context) (*domain.PeakHour, error) {
	var (
		peak   domain.PeakHour
		peakID string
	)

	err := r.q.QueryRowContext(ctx, `SELECT id, is_active FROM peak_hours LIMIT 1`).
		Scan(&peakID, &peak.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT start_time, end_time FROM peak_hour_ranges WHERE peak_hour_id = $1`, peakID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tr domain.TimeRange
		if err := rows.Scan(&tr.Start, &tr.End); err != nil {
			return nil, err
		}
		peak.TimeRanges = append(peak.TimeRanges, tr)
	}

	return &peak, rows.Err()
}

// GetCouponByCode retrieves a coupon by its code.
func (r *FareRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT code, percentage, is_expired, start_at, end_at
		FROM coupons WHERE code = $1
	`

	var coupon domain.Coupon
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&coupon.Code,
		&coupon.Percentage,
		&coupon.IsExpired,
		&coupon.StartAt,
		&coupon.EndAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &coupon, nil
}

// Ensure FareRepository implements repository.FareRepository.
var _ repository.FareRepository = (*FareRepository)(nil)
