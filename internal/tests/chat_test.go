package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newChatFixture() (*service.ChatService, *MockMessageRepository, *MockUserRepository, *MockEventSender, *MockNotifier) {
	messages := NewMockMessageRepository()
	users := NewMockUserRepository()
	events := NewMockEventSender()
	notifier := NewMockNotifier()
	return service.NewChatService(messages, users, events, notifier), messages, users, events, notifier
}

func TestChat_MissingFieldsRejected(t *testing.T) {
	t.Parallel()

	svc, _, users, _, _ := newChatFixture()
	users.AddUser(&domain.User{ID: "rider-1", Role: domain.RoleRider})

	cases := []struct {
		name string
		req  service.SendMessageRequest
		want error
	}{
		{"missing sender", service.SendMessageRequest{ChatID: "c", ReceiverID: "r", Body: "hi"}, service.ErrInvalidUserID},
		{"missing chat", service.SendMessageRequest{SenderID: "rider-1", ReceiverID: "r", Body: "hi"}, service.ErrMissingChatFields},
		{"missing receiver", service.SendMessageRequest{SenderID: "rider-1", ChatID: "c", Body: "hi"}, service.ErrMissingChatFields},
		{"missing body", service.SendMessageRequest{SenderID: "rider-1", ChatID: "c", ReceiverID: "r"}, service.ErrMissingChatFields},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Send(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestChat_DeliversToBothParties(t *testing.T) {
	t.Parallel()

	svc, messages, users, events, notifier := newChatFixture()
	users.AddUser(&domain.User{ID: "rider-1", Name: "Ada", Role: domain.RoleRider})
	users.AddUser(&domain.User{ID: "driver-1", Name: "Grace", Role: domain.RoleDriver})

	msg, err := svc.Send(context.Background(), service.SendMessageRequest{
		ChatID:     "chat-1",
		SenderID:   "rider-1",
		ReceiverID: "driver-1",
		Body:       "I'm by the entrance",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := messages.Messages()
	if len(stored) != 1 || stored[0].ID != msg.ID {
		t.Fatalf("expected the message to be persisted, got %+v", stored)
	}
	if events.CountFor("driver-1", service.EventSendMessage) != 1 {
		t.Error("expected receiver to get a send_message event")
	}
	if events.CountFor("rider-1", service.EventSendMessage) != 1 {
		t.Error("expected sender to get the delivery acknowledgement")
	}
	if len(notifier.NotificationsFor("driver-1")) != 1 {
		t.Error("expected receiver to be notified")
	}
}

func TestChat_UnknownReceiverRejected(t *testing.T) {
	t.Parallel()

	svc, messages, users, _, _ := newChatFixture()
	users.AddUser(&domain.User{ID: "rider-1", Role: domain.RoleRider})

	_, err := svc.Send(context.Background(), service.SendMessageRequest{
		ChatID:     "chat-1",
		SenderID:   "rider-1",
		ReceiverID: "ghost",
		Body:       "hello?",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown receiver")
	}
	if len(messages.Messages()) != 0 {
		t.Error("expected no message to be persisted")
	}
}
