package channel

import (
	"sort"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// Registry holds the configured senders keyed by channel. It is built once
// at startup and read-only afterwards, so no locking is needed.
type Registry struct {
	senders map[prefs.Channel]Sender
}

// NewRegistry builds a registry from the senders that could be configured
// for this deployment. Later senders for the same channel replace earlier
// ones.
func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[prefs.Channel]Sender, len(senders))}
	for _, s := range senders {
		if s == nil {
			continue
		}
		r.senders[s.Channel()] = s
	}
	return r
}

// Get returns the sender for a channel, or false when the channel has no
// configured transport.
func (r *Registry) Get(c prefs.Channel) (Sender, bool) {
	s, ok := r.senders[c]
	return s, ok
}

// Configured lists the channels that have a transport, sorted for stable
// output.
func (r *Registry) Configured() []prefs.Channel {
	out := make([]prefs.Channel, 0, len(r.senders))
	for c := range r.senders {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
