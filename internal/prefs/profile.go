// Package prefs holds per-user notification preference profiles and the
// resolver that turns (event type, profile) into a concrete delivery plan.
package prefs

import (
	"time"

	"github.com/lettera-hq/notifier/internal/event"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels lists every transport in a stable order.
var Channels = []Channel{ChannelInApp, ChannelEmail, ChannelChat, ChannelSMS, ChannelPush}

// Known reports whether c is a recognised channel.
func (c Channel) Known() bool {
	for _, k := range Channels {
		if c == k {
			return true
		}
	}
	return false
}

// Priority orders notifications by urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// rank maps priorities onto a comparable scale. Unknown values rank as normal.
func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// AtLeast reports whether p is at least as urgent as q.
func (p Priority) AtLeast(q Priority) bool { return p.rank() >= q.rank() }

// Known reports whether p is one of the defined priority values.
func (p Priority) Known() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ChannelToggles are the global per-channel enable switches. A channel
// disabled here never appears in a delivery plan, whatever the routing
// matrix says.
type ChannelToggles struct {
	InApp bool `json:"in_app" yaml:"in_app"`
	Email bool `json:"email" yaml:"email"`
	Chat  bool `json:"chat" yaml:"chat"`
	SMS   bool `json:"sms" yaml:"sms"`
	Push  bool `json:"push" yaml:"push"`
}

// Enabled reports whether channel c is switched on.
func (t ChannelToggles) Enabled(c Channel) bool {
	switch c {
	case ChannelInApp:
		return t.InApp
	case ChannelEmail:
		return t.Email
	case ChannelChat:
		return t.Chat
	case ChannelSMS:
		return t.SMS
	case ChannelPush:
		return t.Push
	}
	return false
}

// Route is one routing-matrix entry: the channels an event type goes out on
// and the priority it carries.
type Route struct {
	Channels []Channel `json:"channels" yaml:"channels"`
	Priority Priority  `json:"priority" yaml:"priority"`
}

// RoutingMatrix maps event types to their route.
type RoutingMatrix map[event.Type]Route

// QuietMode selects which priorities a quiet-hours window holds back.
type QuietMode string

const (
	// QuietModeAll suppresses everything below critical.
	QuietModeAll QuietMode = "all"
	// QuietModeImportantOnly additionally lets high priority through.
	QuietModeImportantOnly QuietMode = "importantOnly"
)

// QuietHours is a time-of-day window during which non-critical external
// delivery is suppressed. The window may wrap past midnight.
type QuietHours struct {
	Enabled bool      `json:"enabled"`
	Start   string    `json:"start"` // "HH:MM", 24h clock
	End     string    `json:"end"`   // "HH:MM", 24h clock
	Mode    QuietMode `json:"mode"`
}

// DigestFrequency controls whether low-urgency notifications are delivered
// immediately or batched.
type DigestFrequency string

const (
	DigestInstant DigestFrequency = "instant"
	DigestDaily   DigestFrequency = "daily"
	DigestWeekly  DigestFrequency = "weekly"
)

// DisplayPrefs affect how the inbox renders notifications, never whether
// they are delivered.
type DisplayPrefs struct {
	GroupByResource bool `json:"group_by_resource"`
	ShowPreview     bool `json:"show_preview"`
}

// Profile is one user's complete notification configuration.
type Profile struct {
	UserID    string          `json:"user_id"`
	Channels  ChannelToggles  `json:"channels"`
	Routes    RoutingMatrix   `json:"routes"`
	Quiet     QuietHours      `json:"quiet_hours"`
	Digest    DigestFrequency `json:"digest_frequency"`
	Display   DisplayPrefs    `json:"display"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewProfile returns the profile a user starts with before any explicit
// configuration: all channels on, no route overrides, instant delivery.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID:   userID,
		Channels: ChannelToggles{InApp: true, Email: true, Chat: true, SMS: true, Push: true},
		Routes:   RoutingMatrix{},
		Quiet:    QuietHours{Mode: QuietModeAll},
		Digest:   DigestInstant,
		Display:  DisplayPrefs{ShowPreview: true},
	}
}

// Patch is a partial profile update. Nil fields leave the current value
// unchanged; Routes entries merge per event type.
type Patch struct {
	Channels *ChannelToggles  `json:"channels,omitempty"`
	Routes   RoutingMatrix    `json:"routes,omitempty"`
	Quiet    *QuietHours      `json:"quiet_hours,omitempty"`
	Digest   *DigestFrequency `json:"digest_frequency,omitempty"`
	Display  *DisplayPrefs    `json:"display,omitempty"`
}

// Apply merges the patch over p, returning p for chaining.
func (p *Profile) Apply(patch Patch) *Profile {
	if patch.Channels != nil {
		p.Channels = *patch.Channels
	}
	if len(patch.Routes) > 0 {
		if p.Routes == nil {
			p.Routes = RoutingMatrix{}
		}
		for typ, route := range patch.Routes {
			p.Routes[typ] = route
		}
	}
	if patch.Quiet != nil {
		p.Quiet = *patch.Quiet
	}
	if patch.Digest != nil {
		p.Digest = *patch.Digest
	}
	if patch.Display != nil {
		p.Display = *patch.Display
	}
	return p
}
