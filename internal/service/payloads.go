package service

import (
	"time"

	"dispatch/internal/domain"
)

// TripPayload is the wire shape of a trip inside event envelopes.
type TripPayload struct {
	ID       string `json:"id"`
	RiderID  string `json:"rider_id"`
	DriverID string `json:"driver_id,omitempty"`
	CarID    string `json:"car_id,omitempty"`

	PickupAddress  string  `json:"pickup_address"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DropoffAddress string  `json:"dropoff_address"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLng     float64 `json:"dropoff_lng"`

	DriverLat float64 `json:"driver_lat,omitempty"`
	DriverLng float64 `json:"driver_lng,omitempty"`

	PlannedDurationMin float64 `json:"planned_duration_min"`
	PlannedDistanceM   float64 `json:"planned_distance_m"`
	ActualDurationMin  float64 `json:"actual_duration_min,omitempty"`
	ActualDistanceM    float64 `json:"actual_distance_m,omitempty"`

	EstimatedFare int64 `json:"estimated_fare"`
	TollFee       int64 `json:"toll_fee"`
	FinalFare     int64 `json:"final_fare,omitempty"`
	ExtraCharge   int64 `json:"extra_charge,omitempty"`

	Status             domain.TripStatus `json:"status"`
	CancellationReason []string          `json:"cancellation_reason,omitempty"`
	PeakApplied        bool              `json:"peak_applied"`
	CouponApplied      bool              `json:"coupon_applied"`

	CreatedAt time.Time `json:"created_at"`
}

func tripPayload(trip *domain.Trip) TripPayload {
	return TripPayload{
		ID:                 trip.ID,
		RiderID:            trip.RiderID,
		DriverID:           trip.DriverID,
		CarID:              trip.CarID,
		PickupAddress:      trip.PickupAddress,
		PickupLat:          trip.PickupLat,
		PickupLng:          trip.PickupLng,
		DropoffAddress:     trip.DropoffAddress,
		DropoffLat:         trip.DropoffLat,
		DropoffLng:         trip.DropoffLng,
		DriverLat:          trip.DriverLat,
		DriverLng:          trip.DriverLng,
		PlannedDurationMin: trip.PlannedDurationMin,
		PlannedDistanceM:   trip.PlannedDistanceM,
		ActualDurationMin:  trip.ActualDurationMin,
		ActualDistanceM:    trip.ActualDistanceM,
		EstimatedFare:      trip.EstimatedFare,
		TollFee:            trip.TollFee,
		FinalFare:          trip.FinalFare,
		ExtraCharge:        trip.ExtraCharge,
		Status:             trip.Status,
		CancellationReason: trip.CancellationReason,
		PeakApplied:        trip.PeakApplied,
		CouponApplied:      trip.CouponApplied,
		CreatedAt:          trip.CreatedAt,
	}
}

// UserPayload is the wire shape of a user inside event envelopes. The
// outstanding fee stays server-side.
type UserPayload struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	Role        domain.Role `json:"role"`
	IsOnline    bool        `json:"is_online"`
	IsAvailable bool        `json:"is_available"`
	Lat         float64     `json:"lat,omitempty"`
	Lng         float64     `json:"lng,omitempty"`
}

func userPayload(user *domain.User) UserPayload {
	return UserPayload{
		ID:          user.ID,
		Name:        user.Name,
		Phone:       user.Phone,
		Role:        user.Role,
		IsOnline:    user.IsOnline,
		IsAvailable: user.IsAvailable,
		Lat:         user.Lat,
		Lng:         user.Lng,
	}
}

// MessagePayload is the wire shape of a chat message.
type MessagePayload struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func messagePayload(msg *domain.Message) MessagePayload {
	return MessagePayload{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
}

// LocationPayload carries a live driver position update.
type LocationPayload struct {
	TripID   string  `json:"trip_id"`
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}
