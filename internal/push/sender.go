package push

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

var (
	// ErrPushDisabled means no push gateway is configured.
	ErrPushDisabled = errors.New("push delivery is not configured")
	// ErrUnregistered means the device token is no longer valid.
	ErrUnregistered = errors.New("push token is not registered")
	// ErrTransient marks gateway errors worth retrying.
	ErrTransient = errors.New("transient push gateway error")
)

// Message is one device push.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
	Badge int
}

// Sender delivers a Message to a device.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// FCMSender sends through Firebase Cloud Messaging. A nil client disables
// delivery and every Send returns ErrPushDisabled.
type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

func (s *FCMSender) Send(ctx context.Context, m Message) error {
	if s == nil || s.client == nil {
		return ErrPushDisabled
	}

	badge := m.Badge
	count := m.Badge
	msg := &messaging.Message{
		Token: m.Token,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Data: m.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				NotificationCount: &count,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Badge: &badge, Sound: "default"},
			},
		},
	}

	_, err := s.client.Send(ctx, msg)
	return classifyFCMError(err)
}

func classifyFCMError(err error) error {
	switch {
	case err == nil:
		return nil
	case messaging.IsUnregistered(err):
		return fmt.Errorf("%w: %v", ErrUnregistered, err)
	case messaging.IsUnavailable(err), messaging.IsInternal(err), messaging.IsQuotaExceeded(err):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return err
	}
}
