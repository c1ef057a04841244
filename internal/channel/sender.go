// Package channel defines the uniform delivery contract for notification
// transports and its implementations: in-app (websocket), email (SMTP),
// chat (Telegram), SMS (Twilio) and push (FCM).
package channel

import (
	"context"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/storage"
)

// Message is the content one transport delivers. It is derived from the
// persisted Notification row, which remains the authoritative record
// whatever happens to this send.
type Message struct {
	NotificationID string
	EventType      event.Type
	Priority       prefs.Priority
	Title          string
	Body           string
	ResourceID     string

	// Digest marks a batched periodic delivery; ItemCount is how many
	// notifications it aggregates.
	Digest    bool
	ItemCount int
}

// Recipient carries the addressing a transport needs. Fields irrelevant to
// a given transport are ignored by it.
type Recipient struct {
	UserID         string
	Email          string
	Phone          string
	TelegramChatID int64
	Subscriptions  []storage.PushSubscription
}

// Sender is the interface for notification delivery transports. A Sender
// must never panic its way out of Send: failures are returned, classified,
// and must not affect sibling sends for the same event.
type Sender interface {
	// Channel returns the transport identifier.
	Channel() prefs.Channel
	// Send delivers the message to the recipient. Errors should be (or
	// wrap) *SendError so the dispatcher can classify the failure.
	Send(ctx context.Context, rcpt Recipient, msg Message) error
}
