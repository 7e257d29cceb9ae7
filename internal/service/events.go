package service

// Real-time event names shared by the services and the websocket
// gateway. The engine exposes this catalog as its only ingress and
// egress.
const (
	EventOnlineStatus             = "online_status"
	EventTripRequested            = "trip_requested"
	EventTripAvailable            = "trip_available"
	EventTripAccepted             = "trip_accepted"
	EventTripNoDriverFound        = "trip_no_driver_found"
	EventTripDriverLocationUpdate = "trip_driver_location_update"
	EventTripUpdateStatus         = "trip_update_status"
	EventSendMessage              = "send_message"
	EventSocketError              = "socket_error"
)

// Result is the envelope every server-to-client event carries.
type Result struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a successful event envelope.
func OK(message string, data any) Result {
	return Result{Status: 200, Success: true, Message: message, Data: data}
}

// EventSender pushes an event to a user's open connection, if any.
// Delivery is best effort: a user without an open connection simply
// misses the event.
type EventSender interface {
	SendToUser(userID, event string, payload Result)
}

// Notifier delivers out-of-band notifications (push, email). Failures
// are logged by the implementation and never propagate to trip
// operations.
type Notifier interface {
	Notify(title, message, recipientID string)
}
