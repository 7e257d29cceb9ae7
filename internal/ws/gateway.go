package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// eventTimeout bounds the work triggered by one inbound frame.
const eventTimeout = 15 * time.Second

// Gateway routes inbound websocket events to the services and maps
// their errors back to socket_error frames. It is the engine's only
// ingress besides HTTP health checks.
type Gateway struct {
	hub             *Hub
	presenceService *service.PresenceService
	dispatchService *service.DispatchService
	tripService     *service.TripService
	chatService     *service.ChatService
}

// NewGateway creates a new Gateway and wires it into the hub.
func NewGateway(
	hub *Hub,
	presenceService *service.PresenceService,
	dispatchService *service.DispatchService,
	tripService *service.TripService,
	chatService *service.ChatService,
) *Gateway {
	g := &Gateway{
		hub:             hub,
		presenceService: presenceService,
		dispatchService: dispatchService,
		tripService:     tripService,
		chatService:     chatService,
	}

	hub.SetHandlers(g.handleConnect, g.handleEvent, g.handleDisconnect)

	return g
}

// Handle is the gin endpoint for websocket connections. The user
// identifies with the user_id query parameter; unknown users are
// rejected after the upgrade with a socket_error frame.
func (g *Gateway) Handle(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	g.hub.ServeWS(c.Writer, c.Request, userID)
}

// handleConnect marks the user online before the connection joins the
// hub. An unknown user fails the connection.
func (g *Gateway) handleConnect(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	user, err := g.presenceService.SetOnline(ctx, userID)
	if err != nil {
		return err
	}

	log.Printf("[WS] %s connected as %s", user.Name, user.Role)
	return nil
}

func (g *Gateway) handleDisconnect(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if _, err := g.presenceService.SetOffline(ctx, userID); err != nil {
		log.Printf("[WS] marking %s offline failed: %v", userID, err)
	}
}

func (g *Gateway) handleEvent(userID, event string, data json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var err error
	switch event {
	case service.EventOnlineStatus:
		err = g.onOnlineStatus(ctx, userID, data)
	case service.EventTripRequested:
		err = g.onTripRequested(ctx, userID, data)
	case service.EventTripAccepted:
		err = g.onTripAccepted(ctx, userID, data)
	case service.EventTripUpdateStatus:
		err = g.onTripUpdateStatus(ctx, userID, data)
	case service.EventTripDriverLocationUpdate:
		err = g.onDriverLocationUpdate(ctx, userID, data)
	case service.EventSendMessage:
		err = g.onSendMessage(ctx, userID, data)
	default:
		g.hub.SendToUser(userID, service.EventSocketError, service.Result{
			Status:  http.StatusBadRequest,
			Message: "unknown event: " + event,
		})
		return
	}

	if err != nil {
		g.sendError(userID, err)
	}
}

type onlineStatusRequest struct {
	IsOnline bool `json:"is_online"`
}

func (g *Gateway) onOnlineStatus(ctx context.Context, userID string, data json.RawMessage) error {
	var req onlineStatusRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}

	var (
		user *domain.User
		err  error
	)
	if req.IsOnline {
		user, err = g.presenceService.SetOnline(ctx, userID)
	} else {
		user, err = g.presenceService.SetOffline(ctx, userID)
	}
	if err != nil {
		return err
	}

	message := "You are offline"
	if user.IsOnline {
		message = "You are online"
	}

	g.hub.SendToUser(userID, service.EventOnlineStatus, service.OK(message, gin.H{
		"is_online": user.IsOnline,
	}))

	return nil
}

type tripRequest struct {
	PickupAddress      string  `json:"pickup_address"`
	PickupLat          float64 `json:"pickup_lat"`
	PickupLng          float64 `json:"pickup_lng"`
	DropoffAddress     string  `json:"dropoff_address"`
	DropoffLat         float64 `json:"dropoff_lat"`
	DropoffLng         float64 `json:"dropoff_lng"`
	PlannedDurationMin float64 `json:"planned_duration_min"`
	PlannedDistanceM   float64 `json:"planned_distance_m"`
	CouponCode         string  `json:"coupon_code,omitempty"`
}

func (g *Gateway) onTripRequested(ctx context.Context, userID string, data json.RawMessage) error {
	var req tripRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}

	_, err := g.dispatchService.RequestTrip(ctx, service.RequestTripRequest{
		RiderID:            userID,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		DropoffAddress:     req.DropoffAddress,
		DropoffLat:         req.DropoffLat,
		DropoffLng:         req.DropoffLng,
		PlannedDurationMin: req.PlannedDurationMin,
		PlannedDistanceM:   req.PlannedDistanceM,
		CouponCode:         req.CouponCode,
	})

	return err
}

type acceptRequest struct {
	TripID string  `json:"trip_id"`
	CarID  string  `json:"car_id,omitempty"`
	Lat    float64 `json:"lat,omitempty"`
	Lng    float64 `json:"lng,omitempty"`
}

func (g *Gateway) onTripAccepted(ctx context.Context, userID string, data json.RawMessage) error {
	var req acceptRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}

	_, err := g.tripService.Accept(ctx, service.AcceptTripRequest{
		TripID:    req.TripID,
		DriverID:  userID,
		CarID:     req.CarID,
		DriverLat: req.Lat,
		DriverLng: req.Lng,
	})

	return err
}

type updateStatusRequest struct {
	TripID            string   `json:"trip_id"`
	Status            string   `json:"status"`
	Reason            []string `json:"reason,omitempty"`
	ActualDurationMin float64  `json:"actual_duration_min,omitempty"`
	ActualDistanceM   float64  `json:"actual_distance_m,omitempty"`
}

func (g *Gateway) onTripUpdateStatus(ctx context.Context, userID string, data json.RawMessage) error {
	var req updateStatusRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}

	_, err := g.tripService.UpdateStatus(ctx, service.UpdateTripStatusRequest{
		TripID:            req.TripID,
		ActorID:           userID,
		Status:            domain.TripStatus(req.Status),
		Reason:            req.Reason,
		ActualDurationMin: req.ActualDurationMin,
		ActualDistanceM:   req.ActualDistanceM,
	})

	return err
}

type locationUpdateRequest struct {
	TripID string  `json:"trip_id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

func (g *Gateway) onDriverLocationUpdate(ctx context.Context, userID string, data json.RawMessage) error {
	var req locationUpdateRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}

	_, err := g.tripService.UpdateDriverLocation(ctx, service.UpdateDriverLocationRequest{
		TripID:   req.TripID,
		DriverID: userID,
		Lat:      req.Lat,
		Lng:      req.Lng,
	})

	return err
}

type sendMessageRequest struct {
	ChatID     string `json:"chat_id"`
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}

func (g *Gateway) onSendMessage(ctx context.Context, userID string, data json.RawMessage) error {
	var req sendMessageRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}

	_, err := g.chatService.Send(ctx, service.SendMessageRequest{
		ChatID:     req.ChatID,
		SenderID:   userID,
		ReceiverID: req.ReceiverID,
		Body:       req.Message,
	})

	return err
}

// sendError converts a service error into a socket_error frame.
func (g *Gateway) sendError(userID string, err error) {
	g.hub.SendToUser(userID, service.EventSocketError, service.Result{
		Status:  statusFor(err),
		Message: err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrTripConflict),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrDuplicateTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("event data is required")
	}
	return json.Unmarshal(data, v)
}
