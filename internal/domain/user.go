package domain

import "time"

// Role identifies which side of a trip a user is on.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

// User represents a rider or driver account. For drivers, IsOnline
// tracks an open real-time connection and IsAvailable is false while
// the driver holds an ACCEPTED-through-STARTED trip. OutstandingFee is
// a rider's unpaid extra-charge balance, carried forward until their
// next completed trip.
type User struct {
	ID             string
	Name           string
	Phone          string
	Role           Role
	IsOnline       bool
	IsAvailable    bool
	Lat            float64
	Lng            float64
	OutstandingFee int64
	CreatedAt      time.Time
}
