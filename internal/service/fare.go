package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// FareService computes ride prices from the externally managed fare
// table, peak-hour windows and coupons. Every monetary roundup is a
// ceiling; results are whole currency units and never negative.
type FareService struct {
	fareRepo     repository.FareRepository
	pricingCache redis.PricingCacheInterface
	now          func() time.Time
}

// NewFareService creates a new FareService. pricingCache may be nil.
func NewFareService(fareRepo repository.FareRepository, pricingCache redis.PricingCacheInterface) *FareService {
	return &FareService{
		fareRepo:     fareRepo,
		pricingCache: pricingCache,
		now:          time.Now,
	}
}

// Estimate prices a ride request. Distance is in meters and rounds up
// to whole kilometers; duration is in minutes and rounds up to whole
// minutes. The raw fare is clamped to the configured minimum, doubled
// inside an active peak window, and only then discounted by the coupon.
func (s *FareService) Estimate(ctx context.Context, durationMin, distanceMeters float64, couponCode string) (int64, error) {
	amount, err := s.baseAmount(ctx, durationMin, distanceMeters)
	if err != nil {
		return 0, err
	}

	if couponCode != "" {
		amount, err = s.applyCoupon(ctx, amount, couponCode)
		if err != nil {
			return 0, err
		}
	}

	return amount, nil
}

// Settle prices a completed trip: the same base computation as
// Estimate (without a coupon) plus the toll fee, the trip's accrued
// extra charge and the rider's carried-forward outstanding fee. The
// caller clears the outstanding fee once the trip is COMPLETED.
func (s *FareService) Settle(ctx context.Context, durationMin, distanceMeters float64, tollFee, extraCharge, outstandingFee int64) (int64, error) {
	amount, err := s.baseAmount(ctx, durationMin, distanceMeters)
	if err != nil {
		return 0, err
	}

	return amount + tollFee + extraCharge + outstandingFee, nil
}

// PeakActive reports whether the current time falls inside an active
// peak-hour range. Configuration errors fail open to off-peak.
func (s *FareService) PeakActive(ctx context.Context) bool {
	peak, err := s.peakHour(ctx)
	if err != nil || peak == nil || !peak.IsActive {
		return false
	}

	now := s.now()
	nowMinutes := now.Hour()*60 + now.Minute()

	for _, tr := range peak.TimeRanges {
		start, err := parseClock(tr.Start)
		if err != nil {
			continue
		}
		end, err := parseClock(tr.End)
		if err != nil {
			continue
		}
		if nowMinutes >= start && nowMinutes < end {
			return true
		}
	}

	return false
}

func (s *FareService) baseAmount(ctx context.Context, durationMin, distanceMeters float64) (int64, error) {
	cfg, err := s.fareConfig(ctx)
	if err != nil {
		return 0, err
	}

	km := math.Ceil(distanceMeters / 1000)
	minutes := math.Ceil(durationMin)

	amount := int64(math.Ceil(cfg.BaseFare + km*cfg.FarePerKm + minutes*cfg.FarePerMin))
	if amount < cfg.MinFare {
		amount = cfg.MinFare
	}

	if s.PeakActive(ctx) {
		amount *= 2
	}

	return amount, nil
}

func (s *FareService) applyCoupon(ctx context.Context, amount int64, code string) (int64, error) {
	coupon, err := s.fareRepo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrCouponInvalid
		}
		return 0, err
	}

	if coupon.IsExpired || s.now().After(coupon.EndAt) {
		return 0, ErrCouponInvalid
	}

	discounted := int64(math.Ceil(float64(amount) * (1 - coupon.Percentage/100)))
	if discounted < 0 {
		discounted = 0
	}

	return discounted, nil
}

func (s *FareService) fareConfig(ctx context.Context) (*domain.FareConfig, error) {
	if s.pricingCache != nil {
		if cfg, err := s.pricingCache.GetFareConfig(ctx); err == nil && cfg != nil {
			return cfg, nil
		}
	}

	cfg, err := s.fareRepo.GetFareConfig(ctx)
	if err != nil {
		return nil, err
	}

	if s.pricingCache != nil {
		_ = s.pricingCache.SetFareConfig(ctx, cfg)
	}

	return cfg, nil
}

func (s *FareService) peakHour(ctx context.Context) (*domain.PeakHour, error) {
	if s.pricingCache != nil {
		if peak, err := s.pricingCache.GetPeakHour(ctx); err == nil && peak != nil {
			return peak, nil
		}
	}

	peak, err := s.fareRepo.GetPeakHour(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if s.pricingCache != nil {
		_ = s.pricingCache.SetPeakHour(ctx, peak)
	}

	return peak, nil
}

// parseClock converts a "3:04 PM" clock string to minutes past
// midnight.
func parseClock(value string) (int, error) {
	t, err := time.Parse("3:04 PM", strings.ToUpper(strings.TrimSpace(value)))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
