// Package event defines the domain events that drive notification dispatch.
// Events are ephemeral: they describe something that happened in the
// correspondence tool (a letter arrived, a comment was added, a deadline
// slipped) with enough information to decide who is notified and how.
package event

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Type identifies the kind of domain event. The set is closed: the engine
// resolves unknown values to a safe default plan instead of rejecting them,
// but producers should only emit the constants below.
type Type string

const (
	TypeNewLetter       Type = "NEW_LETTER"
	TypeComment         Type = "COMMENT"
	TypeStatus          Type = "STATUS"
	TypeAssignment      Type = "ASSIGNMENT"
	TypeDeadlineUrgent  Type = "DEADLINE_URGENT"
	TypeDeadlineOverdue Type = "DEADLINE_OVERDUE"
	TypeSystem          Type = "SYSTEM"
)

// Types lists every known event type in a stable order.
var Types = []Type{
	TypeNewLetter,
	TypeComment,
	TypeStatus,
	TypeAssignment,
	TypeDeadlineUrgent,
	TypeDeadlineOverdue,
	TypeSystem,
}

// Known reports whether t is one of the closed enumeration values.
func (t Type) Known() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

// Payload carries the type-specific fields of an event. Each event type has
// its own variant so consumers can switch exhaustively instead of digging
// through an untyped map.
type Payload interface {
	// EventType returns the event type this payload belongs to.
	EventType() Type
}

// NewLetterPayload accompanies TypeNewLetter events.
type NewLetterPayload struct {
	LetterNumber string `json:"letter_number"`
	Sender       string `json:"sender"`
	Subject      string `json:"subject"`
}

func (NewLetterPayload) EventType() Type { return TypeNewLetter }

// CommentPayload accompanies TypeComment events.
type CommentPayload struct {
	CommentID string `json:"comment_id"`
	Excerpt   string `json:"excerpt"`
}

func (CommentPayload) EventType() Type { return TypeComment }

// StatusPayload accompanies TypeStatus events.
type StatusPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

func (StatusPayload) EventType() Type { return TypeStatus }

// AssignmentPayload accompanies TypeAssignment events.
type AssignmentPayload struct {
	AssigneeID string `json:"assignee_id"`
	Role       string `json:"role"`
}

func (AssignmentPayload) EventType() Type { return TypeAssignment }

// DeadlinePayload accompanies the two deadline event types. Overdue selects
// between DEADLINE_URGENT (approaching) and DEADLINE_OVERDUE (passed).
type DeadlinePayload struct {
	Due     time.Time `json:"due"`
	Overdue bool      `json:"overdue"`
}

func (p DeadlinePayload) EventType() Type {
	if p.Overdue {
		return TypeDeadlineOverdue
	}
	return TypeDeadlineUrgent
}

// SystemPayload accompanies TypeSystem events.
type SystemPayload struct {
	Category string `json:"category"`
}

func (SystemPayload) EventType() Type { return TypeSystem }

// Event is a transient description of a domain occurrence. It is never
// persisted; the Notification rows the dispatcher writes are the durable
// record.
type Event struct {
	Type       Type      `json:"type"`
	ResourceID string    `json:"resource_id"`
	// ActorID is the user who caused the event. Empty for system-generated
	// events. The actor is excluded from the recipient set by default.
	ActorID    string    `json:"actor_id,omitempty"`
	Recipients []string  `json:"recipients"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Payload    Payload   `json:"-"`
	OccurredAt time.Time `json:"occurred_at"`

	// DedupeKey overrides the derived fingerprint base when set, so two
	// intentionally distinct events on the same resource don't collapse.
	DedupeKey string `json:"dedupe_key,omitempty"`
	// DedupeWindow overrides the per-type default suppression window.
	// Zero means "use the policy default for this event type".
	DedupeWindow time.Duration `json:"dedupe_window,omitempty"`

	// IncludeActor opts the actor back into the recipient set.
	IncludeActor bool `json:"include_actor,omitempty"`
}

// Normalize deduplicates the recipient list, removes empty IDs, drops the
// actor unless IncludeActor is set, and stamps OccurredAt when unset.
// It returns the event so callers can chain it.
func (e Event) Normalize(now time.Time) Event {
	seen := make(map[string]struct{}, len(e.Recipients))
	out := make([]string, 0, len(e.Recipients))
	for _, r := range e.Recipients {
		if r == "" {
			continue
		}
		if r == e.ActorID && !e.IncludeActor {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	e.Recipients = out
	if e.OccurredAt.IsZero() {
		e.OccurredAt = now
	}
	return e
}

// FingerprintFor derives the dedupe fingerprint identifying "the same
// notification" for one recipient. Granularity is deliberately coarse:
// (type, resource, recipient), not payload, so rapid repeats collapse.
// A non-empty DedupeKey replaces the resource component.
func (e Event) FingerprintFor(recipientID string) string {
	base := e.ResourceID
	if e.DedupeKey != "" {
		base = e.DedupeKey
	}
	h := fnv.New64a()
	// fnv never returns a write error.
	_, _ = h.Write([]byte(string(e.Type)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(base))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(recipientID))
	return fmt.Sprintf("%016x", h.Sum64())
}
