package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusRequested TripStatus = "REQUESTED"
	TripStatusAccepted  TripStatus = "ACCEPTED"
	TripStatusOnTheWay  TripStatus = "ON_THE_WAY"
	TripStatusArrived   TripStatus = "ARRIVED"
	TripStatusPickedUp  TripStatus = "PICKED_UP"
	TripStatusStarted   TripStatus = "STARTED"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
	TripStatusNoShow    TripStatus = "NO_SHOW"
)

// IsTerminal reports whether the status ends the trip's lifecycle.
func (s TripStatus) IsTerminal() bool {
	switch s {
	case TripStatusCompleted, TripStatusCancelled, TripStatusNoShow:
		return true
	}
	return false
}

// Transition is one allowed edge in the trip lifecycle.
type Transition struct {
	From TripStatus
	Role Role
}

// transitionTable lists every allowed status transition together with
// the role permitted to perform it. A requested transition not present
// here is rejected. Acceptance (REQUESTED -> ACCEPTED) is excluded on
// purpose: it only happens through the acceptance arbiter's
// conditional update, never through the state machine.
var transitionTable = map[TripStatus][]Transition{
	TripStatusOnTheWay: {
		{From: TripStatusAccepted, Role: RoleDriver},
	},
	TripStatusArrived: {
		{From: TripStatusOnTheWay, Role: RoleDriver},
	},
	TripStatusPickedUp: {
		{From: TripStatusArrived, Role: RoleDriver},
	},
	TripStatusStarted: {
		{From: TripStatusPickedUp, Role: RoleDriver},
	},
	TripStatusCompleted: {
		{From: TripStatusStarted, Role: RoleDriver},
	},
	TripStatusCancelled: {
		{From: TripStatusRequested, Role: RoleRider},
		{From: TripStatusOnTheWay, Role: RoleRider},
	},
	TripStatusNoShow: {
		{From: TripStatusArrived, Role: RoleDriver},
	},
}

// KnownStatus reports whether the status is a valid transition target.
func KnownStatus(s TripStatus) bool {
	_, ok := transitionTable[s]
	return ok
}

// AllowedTransition checks whether a trip may move from its current
// status to newStatus when requested by the given role. The first
// result reports that the edge exists at all; the second that the role
// is permitted on it. This distinguishes a role violation from an
// out-of-order transition.
func AllowedTransition(current, newStatus TripStatus, role Role) (edgeExists, roleAllowed bool) {
	for _, t := range transitionTable[newStatus] {
		if t.From != current {
			continue
		}
		edgeExists = true
		if t.Role == role {
			return true, true
		}
	}
	return edgeExists, false
}

// Trip represents one ride request from dispatch to completion.
// DriverID and CarID are set exactly once, at acceptance, and never
// cleared. TollFee never goes below zero. FinalFare is set only when
// the trip reaches COMPLETED.
type Trip struct {
	ID       string
	RiderID  string
	DriverID string
	CarID    string

	PickupAddress  string
	PickupLat      float64
	PickupLng      float64
	DropoffAddress string
	DropoffLat     float64
	DropoffLng     float64

	// Live driver position, updated while the trip is active.
	DriverLat float64
	DriverLng float64

	// Planned values come from the rider's request estimate; actual
	// values are reported by the driver on completion.
	PlannedDurationMin float64
	PlannedDistanceM   float64
	ActualDurationMin  float64
	ActualDistanceM    float64

	EstimatedFare int64
	TollFee       int64
	FinalFare     int64
	ExtraCharge   int64

	Status             TripStatus
	CancellationReason []string
	PeakApplied        bool
	CouponApplied      bool

	CreatedAt   time.Time
	AcceptedAt  time.Time
	ArrivedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// ExtraChargeType classifies time-threshold fees added to a trip.
type ExtraChargeType string

const (
	ExtraChargeLateCancellation ExtraChargeType = "LATE_CANCELLATION"
	ExtraChargeDriverWaiting    ExtraChargeType = "DRIVER_WAITING"
	ExtraChargeNoShow           ExtraChargeType = "NO_SHOW"
)

// CalculateExtraCharge returns the fee for the given charge type based
// on whole minutes elapsed since the reference timestamp. Late
// cancellation and driver waiting tier at 5 and 10 minutes; a no-show
// charges the full fee once 5 minutes have passed.
func CalculateExtraCharge(chargeType ExtraChargeType, reference, now time.Time) int64 {
	minutes := int(now.Sub(reference).Minutes())

	switch chargeType {
	case ExtraChargeLateCancellation, ExtraChargeDriverWaiting:
		if minutes >= 10 {
			return 10
		}
		if minutes >= 5 {
			return 5
		}
	case ExtraChargeNoShow:
		if minutes >= 5 {
			return 10
		}
	}
	return 0
}
