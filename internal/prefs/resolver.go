package prefs

import "github.com/lettera-hq/notifier/internal/event"

// DeliveryPlan is the resolved outcome for one (event type, recipient) pair.
type DeliveryPlan struct {
	Channels []Channel `json:"channels"`
	Priority Priority  `json:"priority"`
}

// Includes reports whether the plan contains channel c.
func (p DeliveryPlan) Includes(c Channel) bool {
	for _, ch := range p.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// DefaultMatrix is the system-wide routing matrix used when a user has no
// override for an event type. Deployments can replace entries via the policy
// file.
func DefaultMatrix() RoutingMatrix {
	return RoutingMatrix{
		event.TypeNewLetter:       {Channels: []Channel{ChannelInApp, ChannelEmail}, Priority: PriorityNormal},
		event.TypeComment:         {Channels: []Channel{ChannelInApp}, Priority: PriorityNormal},
		event.TypeStatus:          {Channels: []Channel{ChannelInApp}, Priority: PriorityLow},
		event.TypeAssignment:      {Channels: []Channel{ChannelInApp, ChannelEmail, ChannelPush}, Priority: PriorityHigh},
		event.TypeDeadlineUrgent:  {Channels: []Channel{ChannelInApp, ChannelEmail, ChannelPush}, Priority: PriorityHigh},
		event.TypeDeadlineOverdue: {Channels: []Channel{ChannelInApp, ChannelEmail, ChannelChat, ChannelSMS, ChannelPush}, Priority: PriorityCritical},
		event.TypeSystem:          {Channels: []Channel{ChannelInApp, ChannelEmail}, Priority: PriorityNormal},
	}
}

// fallbackRoute is used when neither the user nor the system matrix knows the
// event type. An unrecognised event must never prevent the in-app record.
var fallbackRoute = Route{Channels: []Channel{ChannelInApp}, Priority: PriorityNormal}

// Resolver merges an event type with a recipient's profile into a delivery
// plan. It is a pure function of its inputs: no I/O, no clock, no globals.
type Resolver struct {
	defaults RoutingMatrix
}

// NewResolver creates a Resolver with the given system default matrix.
// A nil matrix falls back to DefaultMatrix.
func NewResolver(defaults RoutingMatrix) *Resolver {
	if defaults == nil {
		defaults = DefaultMatrix()
	}
	return &Resolver{defaults: defaults}
}

// Resolve produces the delivery plan for eventType under profile. It is
// total: a nil profile means "no user override", and an event type unknown
// to both matrices resolves to in-app at normal priority.
func (r *Resolver) Resolve(eventType event.Type, profile *Profile) DeliveryPlan {
	route, ok := r.routeFor(eventType, profile)
	if !ok {
		route = fallbackRoute
	}

	toggles := ChannelToggles{InApp: true, Email: true, Chat: true, SMS: true, Push: true}
	if profile != nil {
		toggles = profile.Channels
	}

	channels := make([]Channel, 0, len(route.Channels))
	for _, c := range route.Channels {
		if toggles.Enabled(c) {
			channels = append(channels, c)
		}
	}

	priority := route.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	return DeliveryPlan{Channels: channels, Priority: priority}
}

func (r *Resolver) routeFor(eventType event.Type, profile *Profile) (Route, bool) {
	if profile != nil {
		if route, ok := profile.Routes[eventType]; ok {
			return route, true
		}
	}
	route, ok := r.defaults[eventType]
	return route, ok
}
