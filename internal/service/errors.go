package service

import "errors"

var (
	// ErrInvalidRiderID is returned when the rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidTripID is returned when the trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidUserID is returned when the user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrMissingPickup is returned when the pickup address is empty.
	ErrMissingPickup = errors.New("pickup address is required")

	// ErrMissingDropoff is returned when the drop-off address is empty.
	ErrMissingDropoff = errors.New("drop-off address is required")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropoffLocation is returned when drop-off coordinates are invalid.
	ErrInvalidDropoffLocation = errors.New("invalid drop-off location")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMissingEstimate is returned when the planned duration or distance is absent.
	ErrMissingEstimate = errors.New("duration and distance estimates are required")

	// ErrMissingTripMetrics is returned when completing a trip without
	// its actual duration and distance.
	ErrMissingTripMetrics = errors.New("duration and distance are required to complete a trip")

	// ErrMissingCancelReason is returned when cancelling without a reason.
	ErrMissingCancelReason = errors.New("a reason is required to cancel a trip")

	// ErrInvalidStatus is returned for a status outside the lifecycle.
	ErrInvalidStatus = errors.New("invalid trip status")

	// ErrInvalidTransition is returned for an out-of-order status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateTransition is returned when the trip already holds the
	// requested terminal or picked-up status; rejecting the repeat
	// prevents double-charging.
	ErrDuplicateTransition = errors.New("trip already in requested status")

	// ErrForbidden is returned when the actor's role may not perform the
	// transition.
	ErrForbidden = errors.New("role not permitted to perform this transition")

	// ErrTripConflict is returned when a conditional trip update lost a
	// race: the expected outcome for every losing driver in an
	// acceptance race and for an expiry timer firing late.
	ErrTripConflict = errors.New("trip no longer available")

	// ErrDriverBusy is returned when a driver already has an acceptance
	// in flight.
	ErrDriverBusy = errors.New("driver already accepting a trip")

	// ErrCouponInvalid is returned for an unknown or expired coupon.
	ErrCouponInvalid = errors.New("coupon is invalid or expired")

	// ErrMissingChatFields is returned when a chat message lacks its
	// receiver, chat, or body.
	ErrMissingChatFields = errors.New("receiver, chat and message are required")
)
