// Package digest buffers non-instant deliveries into per-user buckets and
// flushes them on a periodic schedule.
package digest

import (
	"sync"
	"time"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/prefs"
)

// Item is one deferred notification waiting in a digest bucket. Channels
// records which external channels the delivery plan selected, so the flush
// can send the batched message over the same transports.
type Item struct {
	NotificationID string
	EventType      event.Type
	Priority       prefs.Priority
	Title          string
	Body           string
	ResourceID     string
	Channels       []prefs.Channel
	BufferedAt     time.Time
}

// Buffer holds pending digest items keyed by period and user. Offer and
// Drain may run concurrently; Drain swaps the period's bucket map out
// atomically so a flush never races with new arrivals.
type Buffer struct {
	mu      sync.Mutex
	buckets map[prefs.DigestFrequency]map[string][]Item
}

func NewBuffer() *Buffer {
	return &Buffer{buckets: make(map[prefs.DigestFrequency]map[string][]Item)}
}

// Offer appends an item to the user's bucket for the given period.
func (b *Buffer) Offer(period prefs.DigestFrequency, userID string, item Item) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byUser, ok := b.buckets[period]
	if !ok {
		byUser = make(map[string][]Item)
		b.buckets[period] = byUser
	}
	byUser[userID] = append(byUser[userID], item)
}

// Drain removes and returns every pending bucket for the period. Items
// offered after the swap land in a fresh bucket and wait for the next
// flush.
func (b *Buffer) Drain(period prefs.DigestFrequency) map[string][]Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := b.buckets[period]
	delete(b.buckets, period)
	return pending
}

// Pending reports how many items are buffered for the period, across all
// users.
func (b *Buffer) Pending(period prefs.DigestFrequency) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, items := range b.buckets[period] {
		n += len(items)
	}
	return n
}
