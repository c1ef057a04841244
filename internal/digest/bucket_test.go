package digest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/prefs"
)

func TestBufferOfferAndDrain(t *testing.T) {
	b := NewBuffer()

	b.Offer(prefs.DigestDaily, "u1", Item{NotificationID: "n1", EventType: event.TypeComment})
	b.Offer(prefs.DigestDaily, "u1", Item{NotificationID: "n2", EventType: event.TypeComment})
	b.Offer(prefs.DigestDaily, "u2", Item{NotificationID: "n3", EventType: event.TypeStatus})
	b.Offer(prefs.DigestWeekly, "u1", Item{NotificationID: "n4", EventType: event.TypeSystem})

	assert.Equal(t, 3, b.Pending(prefs.DigestDaily))
	assert.Equal(t, 1, b.Pending(prefs.DigestWeekly))

	pending := b.Drain(prefs.DigestDaily)
	require.Len(t, pending, 2)
	assert.Len(t, pending["u1"], 2)
	assert.Len(t, pending["u2"], 1)

	// Drain is a swap: the daily bucket is empty, the weekly one untouched.
	assert.Equal(t, 0, b.Pending(prefs.DigestDaily))
	assert.Equal(t, 1, b.Pending(prefs.DigestWeekly))
	assert.Empty(t, b.Drain(prefs.DigestDaily))
}

func TestBufferDrainEmpty(t *testing.T) {
	b := NewBuffer()
	assert.Empty(t, b.Drain(prefs.DigestDaily))
}

func TestBufferConcurrentOffer(t *testing.T) {
	b := NewBuffer()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				b.Offer(prefs.DigestDaily, fmt.Sprintf("u%d", w%4), Item{
					NotificationID: fmt.Sprintf("n-%d-%d", w, i),
					BufferedAt:     time.Now(),
				})
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, items := range b.Drain(prefs.DigestDaily) {
		total += len(items)
	}
	assert.Equal(t, workers*perWorker, total)
}
