package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ChatService relays in-trip messages between rider and driver.
type ChatService struct {
	messageRepo         repository.MessageRepository
	userRepo            repository.UserRepository
	events              EventSender
	notificationService Notifier
	now                 func() time.Time
}

// NewChatService creates a new ChatService.
func NewChatService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	events EventSender,
	notificationService Notifier,
) *ChatService {
	return &ChatService{
		messageRepo:         messageRepo,
		userRepo:            userRepo,
		events:              events,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// SendMessageRequest contains the parameters for sending a message.
type SendMessageRequest struct {
	ChatID     string
	SenderID   string
	ReceiverID string
	Body       string
}

// Send persists the message and pushes it to both parties. The sender
// receives their own message back as the delivery acknowledgement.
func (s *ChatService) Send(ctx context.Context, req SendMessageRequest) (*domain.Message, error) {
	if req.SenderID == "" {
		return nil, ErrInvalidUserID
	}
	if req.ChatID == "" || req.ReceiverID == "" || req.Body == "" {
		return nil, ErrMissingChatFields
	}

	sender, err := s.userRepo.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, req.ReceiverID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		ChatID:     req.ChatID,
		SenderID:   sender.ID,
		ReceiverID: req.ReceiverID,
		Body:       req.Body,
		CreatedAt:  s.now(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	payload := messagePayload(msg)
	if s.events != nil {
		s.events.SendToUser(msg.ReceiverID, EventSendMessage, OK("New message", payload))
		s.events.SendToUser(msg.SenderID, EventSendMessage, OK("Message sent", payload))
	}

	if s.notificationService != nil {
		s.notificationService.Notify("New Message",
			fmt.Sprintf("%s sent you a message", sender.Name), msg.ReceiverID)
	}

	return msg, nil
}
