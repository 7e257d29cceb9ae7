package domain

import "time"

// OnlineSession records one continuous online interval for a driver.
// A session is opened when the driver goes online and closed when they
// go offline; abrupt disconnects can leave a session without an end,
// which a periodic sweep removes.
type OnlineSession struct {
	ID        string
	DriverID  string
	StartedAt time.Time
	EndedAt   time.Time     // zero until the session closes
	Duration  time.Duration // zero until the session closes
}

// Message is one chat message exchanged between a rider and a driver.
type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	ReceiverID string
	Body       string
	CreatedAt  time.Time
}
