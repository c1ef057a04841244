package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// TelegramSender delivers chat notifications through a Telegram bot. The
// bot is send-only: no poller is attached and incoming updates are never
// consumed.
type TelegramSender struct {
	bot *tele.Bot
}

// NewTelegramSender builds a send-only bot. The timeout caps every bot API
// call at the HTTP client; telebot does not consult the context once a
// request is in flight.
func NewTelegramSender(token string, timeout time.Duration) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b}, nil
}

func (s *TelegramSender) Channel() prefs.Channel { return prefs.ChannelChat }

func (s *TelegramSender) Send(_ context.Context, rcpt Recipient, msg Message) error {
	if rcpt.TelegramChatID == 0 {
		return Permanent(errors.New("recipient has no telegram chat"))
	}

	chat := &tele.Chat{ID: rcpt.TelegramChatID}
	_, err := s.bot.Send(chat, formatChatText(msg), &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return classifyTelegramError(err)
	}
	return nil
}

// formatChatText renders the message as plain text with a priority marker
// for anything above normal.
func formatChatText(msg Message) string {
	var b strings.Builder
	switch msg.Priority {
	case prefs.PriorityCritical:
		b.WriteString("🚨 ")
	case prefs.PriorityHigh:
		b.WriteString("❗ ")
	}
	b.WriteString(msg.Title)
	if msg.Digest && msg.ItemCount > 1 {
		fmt.Fprintf(&b, " (%d updates)", msg.ItemCount)
	}
	if msg.Body != "" {
		b.WriteString("\n")
		b.WriteString(msg.Body)
	}
	return b.String()
}

func classifyTelegramError(err error) error {
	switch {
	case errors.Is(err, tele.ErrBlockedByUser),
		errors.Is(err, tele.ErrUserIsDeactivated),
		errors.Is(err, tele.ErrChatNotFound):
		return Permanent(err)
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return Transient(err)
	}
	return Transient(err)
}
