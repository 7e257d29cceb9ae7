package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func standardFareRepo() *MockFareRepository {
	fares := NewMockFareRepository()
	fares.SetFareConfig(&domain.FareConfig{
		BaseFare:   3,
		FarePerKm:  1.5,
		FarePerMin: 0.4,
		MinFare:    6,
	})
	fares.SetPeakHour(&domain.PeakHour{IsActive: false})
	return fares
}

// allDayPeak covers the whole clock so peak pricing is active whenever
// the test runs.
func allDayPeak() *domain.PeakHour {
	return &domain.PeakHour{
		IsActive: true,
		TimeRanges: []domain.TimeRange{
			{Start: "12:00 AM", End: "11:59 PM"},
		},
	}
}

func TestEstimate_RoundsUpAndSums(t *testing.T) {
	t.Parallel()

	svc := service.NewFareService(standardFareRepo(), nil)

	// 4200m rounds to 5km, 12min stays 12: 3 + 5*1.5 + 12*0.4 = 15.3 -> 16.
	fare, err := svc.Estimate(context.Background(), 12, 4200, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fare != 16 {
		t.Errorf("expected fare 16, got %d", fare)
	}
}

func TestEstimate_ClampsToMinimumFare(t *testing.T) {
	t.Parallel()

	svc := service.NewFareService(standardFareRepo(), nil)

	// 3 + 1*1.5 + 1*0.4 = 4.9 -> 5, below the minimum of 6.
	fare, err := svc.Estimate(context.Background(), 1, 100, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fare != 6 {
		t.Errorf("expected minimum fare 6, got %d", fare)
	}
}

func TestEstimate_PeakDoublesAfterClamping(t *testing.T) {
	t.Parallel()

	fares := standardFareRepo()
	fares.SetPeakHour(allDayPeak())
	svc := service.NewFareService(fares, nil)

	fare, err := svc.Estimate(context.Background(), 12, 4200, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fare != 32 {
		t.Errorf("expected peak fare 32, got %d", fare)
	}
}

func TestEstimate_CouponAppliesAfterPeak(t *testing.T) {
	t.Parallel()

	fares := standardFareRepo()
	fares.SetPeakHour(allDayPeak())
	fares.AddCoupon(&domain.Coupon{
		Code:       "SAVE20",
		Percentage: 20,
		EndAt:      time.Now().Add(time.Hour),
	})
	svc := service.NewFareService(fares, nil)

	// ceil(32 * 0.8) = 26.
	fare, err := svc.Estimate(context.Background(), 12, 4200, "SAVE20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fare != 26 {
		t.Errorf("expected discounted fare 26, got %d", fare)
	}
}

func TestEstimate_ExpiredCouponRejected(t *testing.T) {
	t.Parallel()

	fares := standardFareRepo()
	fares.AddCoupon(&domain.Coupon{
		Code:       "OLD",
		Percentage: 50,
		EndAt:      time.Now().Add(-time.Hour),
	})
	fares.AddCoupon(&domain.Coupon{
		Code:       "FLAGGED",
		Percentage: 50,
		IsExpired:  true,
		EndAt:      time.Now().Add(time.Hour),
	})
	svc := service.NewFareService(fares, nil)

	for _, code := range []string{"OLD", "FLAGGED", "UNKNOWN"} {
		_, err := svc.Estimate(context.Background(), 12, 4200, code)
		if !errors.Is(err, service.ErrCouponInvalid) {
			t.Errorf("coupon %s: expected ErrCouponInvalid, got %v", code, err)
		}
	}
}

func TestEstimate_FullDiscountFloorsAtZero(t *testing.T) {
	t.Parallel()

	fares := standardFareRepo()
	fares.AddCoupon(&domain.Coupon{
		Code:       "FREE",
		Percentage: 100,
		EndAt:      time.Now().Add(time.Hour),
	})
	svc := service.NewFareService(fares, nil)

	fare, err := svc.Estimate(context.Background(), 12, 4200, "FREE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fare != 0 {
		t.Errorf("expected fare 0, got %d", fare)
	}
}

func TestSettle_AddsTollExtraAndOutstanding(t *testing.T) {
	t.Parallel()

	svc := service.NewFareService(standardFareRepo(), nil)

	// Base 16 plus toll 2, extra charge 5, outstanding 10.
	fare, err := svc.Settle(context.Background(), 12, 4200, 2, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fare != 33 {
		t.Errorf("expected settled fare 33, got %d", fare)
	}
}

func TestPeakActive_FailsOpenWithoutConfig(t *testing.T) {
	t.Parallel()

	fares := NewMockFareRepository()
	fares.SetFareConfig(&domain.FareConfig{BaseFare: 3, FarePerKm: 1.5, FarePerMin: 0.4, MinFare: 6})
	svc := service.NewFareService(fares, nil)

	if svc.PeakActive(context.Background()) {
		t.Error("expected off-peak when no peak config exists")
	}
}
