package notification

import (
	"context"
	"errors"
	"fmt"

	"homeserve/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// ErrNoDevices means the recipient has no registered device to push to.
var ErrNoDevices = errors.New("recipient has no FCM token")

// Dispatcher hands a notice off for delivery. It never blocks the caller on
// delivery and never reports delivery failures back.
type Dispatcher interface {
	Notify(ctx context.Context, notice models.Notice)
}

// NotificationService delivers one push notification synchronously.
type NotificationService interface {
	SendPushNotification(ctx context.Context, notice models.Notice) error
}

// TokenDirectory resolves a recipient to their registered device tokens.
type TokenDirectory interface {
	TokensForUser(ctx context.Context, userID string) ([]string, error)
}

// PushClient is the part of *messaging.Client used here.
type PushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DefaultNotificationService sends pushes through Firebase Cloud Messaging.
type DefaultNotificationService struct {
	Tokens TokenDirectory
	Client PushClient
	Logger *zap.Logger
}

func NewDefaultNotificationService(tokens TokenDirectory, client PushClient, logger *zap.Logger) (*DefaultNotificationService, error) {
	if tokens == nil || client == nil {
		return nil, fmt.Errorf("notification service initialization error: token directory or push client is nil")
	}
	return &DefaultNotificationService{Tokens: tokens, Client: client, Logger: logger}, nil
}

// SendPushNotification looks up the recipient's device tokens and pushes to each.
// It fails only when no device received the message.
func (s *DefaultNotificationService) SendPushNotification(ctx context.Context, notice models.Notice) error {
	tokens, err := s.Tokens.TokensForUser(ctx, notice.RecipientID)
	if err != nil {
		return fmt.Errorf("SendPushNotification: could not load tokens for %s: %w", notice.RecipientID, err)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("SendPushNotification: %s %s: %w", notice.Role, notice.RecipientID, ErrNoDevices)
	}

	data := make(map[string]string, len(notice.Data)+1)
	for k, v := range notice.Data {
		data[k] = v
	}
	if _, ok := data["role"]; !ok {
		data["role"] = string(notice.Role)
	}

	var lastErr error
	delivered := 0
	for _, token := range tokens {
		msg := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: notice.Title,
				Body:  notice.Body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					ChannelID: "high_priority",
					Sound:     "default",
				},
			},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{
					"apns-priority":  "10",
					"apns-push-type": "alert",
				},
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			},
		}
		if _, err := s.Client.Send(ctx, msg); err != nil {
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("SendPushNotification: failed to send FCM message: %w", lastErr)
	}
	if lastErr != nil && s.Logger != nil {
		s.Logger.Debug("push partially delivered",
			zap.String("recipient", notice.RecipientID), zap.Int("delivered", delivered), zap.Error(lastErr))
	}
	return nil
}
