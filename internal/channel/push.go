package channel

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// Invalidator deactivates a push registration whose endpoint no longer
// exists. The dispatcher wires this to the subscription store.
type Invalidator func(ctx context.Context, endpoint string) error

// PushSender delivers push notifications through Firebase Cloud Messaging.
// Each active registration of the recipient gets the message; dead
// registrations are invalidated as FCM reports them.
type PushSender struct {
	client     *messaging.Client
	invalidate Invalidator
}

func NewPushSender(ctx context.Context, credentialsFile string, invalidate Invalidator) (*PushSender, error) {
	if credentialsFile == "" {
		return nil, errors.New("fcm credentials file is not set")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &PushSender{client: client, invalidate: invalidate}, nil
}

func (s *PushSender) Channel() prefs.Channel { return prefs.ChannelPush }

func (s *PushSender) Send(ctx context.Context, rcpt Recipient, msg Message) error {
	if len(rcpt.Subscriptions) == 0 {
		return Permanent(errors.New("recipient has no active push registrations"))
	}

	var errs []error
	delivered := 0
	for _, sub := range rcpt.Subscriptions {
		err := s.sendOne(ctx, sub.Endpoint, msg)
		if err == nil {
			delivered++
			continue
		}
		if KindOf(err) == FailureEndpointGone {
			// Dead registration: drop it and keep going. Sibling
			// registrations are unaffected.
			if s.invalidate != nil {
				_ = s.invalidate(ctx, sub.Endpoint)
			}
			continue
		}
		errs = append(errs, err)
	}

	if delivered > 0 {
		return nil
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	// Every registration turned out to be gone.
	return Permanent(errors.New("all push registrations are gone"))
}

func (s *PushSender) sendOne(ctx context.Context, token string, msg Message) error {
	fcmMsg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"type":           string(msg.EventType),
			"priority":       string(msg.Priority),
			"notificationId": msg.NotificationID,
			"resourceId":     msg.ResourceID,
		},
		Android: &messaging.AndroidConfig{
			Priority: androidPriority(msg.Priority),
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	if _, err := s.client.Send(ctx, fcmMsg); err != nil {
		return classifyFCMError(token, err)
	}
	return nil
}

func androidPriority(p prefs.Priority) string {
	if p.AtLeast(prefs.PriorityHigh) {
		return "high"
	}
	return "normal"
}

func classifyFCMError(token string, err error) error {
	switch {
	case messaging.IsUnregistered(err):
		return EndpointGone(token, err)
	case messaging.IsInvalidArgument(err):
		return Permanent(err)
	case messaging.IsUnavailable(err), messaging.IsInternal(err), messaging.IsQuotaExceeded(err):
		return Transient(err)
	}
	return Transient(err)
}
