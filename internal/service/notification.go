package service

import "log"

// NotificationService delivers notifications through the external
// gateway. Delivery is fire-and-forget: failures are logged and never
// fail the trip operation that triggered them.
type NotificationService struct {
	// In a real deployment this would hold a push client (FCM, APNS)
	// and an email client; the engine only depends on the Notify
	// contract.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Notify sends a notification to the recipient. An empty recipientID
// addresses the administrative feed.
func (s *NotificationService) Notify(title, message, recipientID string) {
	if title == "" || message == "" {
		log.Printf("[NOTIFICATION] dropped: missing title or message")
		return
	}

	log.Printf("[NOTIFICATION] Recipient=%s, Title=%s, Message=%s", recipientID, title, message)
}

// Ensure NotificationService implements Notifier.
var _ Notifier = (*NotificationService)(nil)
