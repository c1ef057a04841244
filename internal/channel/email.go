package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// EmailConfig holds the SMTP transport settings.
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromAddr   string
	Encryption string // "ssl_tls", "starttls" or "none"
	// SubjectPrefix is prepended to every outgoing subject line.
	SubjectPrefix string
}

// EmailSender delivers notifications over SMTP using go-mail.
type EmailSender struct {
	config EmailConfig
}

func NewEmailSender(config EmailConfig) *EmailSender {
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "[Lettera] "
	}
	return &EmailSender{config: config}
}

func (s *EmailSender) Channel() prefs.Channel { return prefs.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, rcpt Recipient, msg Message) error {
	if rcpt.Email == "" {
		return Permanent(errors.New("recipient has no email address"))
	}

	m := mail.NewMsg()
	if err := m.From(s.config.FromAddr); err != nil {
		return Permanent(fmt.Errorf("invalid from address: %w", err))
	}
	if err := m.To(rcpt.Email); err != nil {
		return Permanent(fmt.Errorf("invalid recipient %q: %w", rcpt.Email, err))
	}

	subject := s.config.SubjectPrefix + msg.Title
	m.Subject(subject)

	// Plain-text fallback for clients that don't render HTML.
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	if html, err := buildEmailHTML(msg.Title, msg.Body, msg.Digest); err == nil {
		m.AddAlternativeString(mail.TypeTextHTML, html)
	}

	c, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(s.config.Encryption)),
	)
	if err != nil {
		return Permanent(fmt.Errorf("failed to create mail client: %w", err))
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return Transient(err)
	}
	return nil
}

// tlsPolicyFromEncryption converts the encryption setting to a go-mail
// TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
