package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// smsBodyLimit keeps messages within a small number of SMS segments.
const smsBodyLimit = 320

// SMSSender delivers notifications as text messages through Twilio.
type SMSSender struct {
	client *twilio.RestClient
	from   string
}

// NewSMSSender builds a Twilio-backed sender. The timeout is set on the
// underlying HTTP client; the REST API path does not take a context.
func NewSMSSender(accountSID, authToken, from string, timeout time.Duration) (*SMSSender, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, errors.New("twilio credentials are incomplete")
	}
	c := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(accountSID, authToken),
	}
	c.SetTimeout(timeout)
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
		Client:   c,
	})
	return &SMSSender{client: client, from: from}, nil
}

func (s *SMSSender) Channel() prefs.Channel { return prefs.ChannelSMS }

func (s *SMSSender) Send(_ context.Context, rcpt Recipient, msg Message) error {
	if rcpt.Phone == "" {
		return Permanent(errors.New("recipient has no phone number"))
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(rcpt.Phone)
	params.SetFrom(s.from)
	params.SetBody(formatSMSText(msg))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return classifyTwilioError(err)
	}
	return nil
}

func formatSMSText(msg Message) string {
	text := msg.Title
	if msg.Digest && msg.ItemCount > 1 {
		text = fmt.Sprintf("%s (%d updates)", msg.Title, msg.ItemCount)
	} else if msg.Body != "" {
		text = msg.Title + ": " + msg.Body
	}
	if len(text) > smsBodyLimit {
		text = strings.TrimSpace(text[:smsBodyLimit-1]) + "…"
	}
	return text
}

func classifyTwilioError(err error) error {
	var rest *twilioclient.TwilioRestError
	if errors.As(err, &rest) {
		if rest.Status >= 500 {
			return Transient(err)
		}
		return Permanent(err)
	}
	return Transient(err)
}
