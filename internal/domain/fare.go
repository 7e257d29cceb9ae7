package domain

import "time"

// FareConfig is the singleton fare table read by the fare engine.
// Rates are fractional; computed fares are whole currency units.
type FareConfig struct {
	BaseFare   float64
	FarePerKm  float64
	FarePerMin float64
	MinFare    int64
}

// TimeRange is a time-of-day window in "3:04 PM" clock notation.
type TimeRange struct {
	Start string
	End   string
}

// PeakHour is the singleton peak-pricing configuration. Fares double
// while the current clock time falls inside any range and the config
// is active.
type PeakHour struct {
	IsActive   bool
	TimeRanges []TimeRange
}

// Coupon is a percentage discount with an activation window.
type Coupon struct {
	Code       string
	Percentage float64
	IsExpired  bool
	StartAt    time.Time
	EndAt      time.Time
}
