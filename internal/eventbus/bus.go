// Package eventbus provides an in-memory, asynchronous event bus for domain
// events. Events are dispatched through a bounded buffered channel and
// processed by a worker pool, so raising an event never blocks the business
// operation that produced it.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/lettera-hq/notifier/internal/event"
)

const (
	defaultWorkers    = 4
	defaultBufferSize = 256
)

// Listener is a function that handles an event.
type Listener func(event.Event)

// Bus is the interface for publishing events and managing subscribers.
type Bus interface {
	// Publish enqueues an event. It never blocks: if the buffer is full,
	// the event is dropped and a warning is logged. Overload sheds new
	// events rather than stalling producers.
	Publish(e event.Event)

	// Subscribe registers a listener that will be called for every published
	// event. All listeners are invoked for each event (broadcast). Subscribe
	// must be called before the first Publish; behavior is undefined if
	// called after Close.
	Subscribe(listener Listener)

	// Close stops accepting new events and waits for all pending events to
	// be processed.
	Close()
}

// Option configures the bus.
type Option func(*inMemoryBus)

// WithBufferSize sets the queue depth. Non-positive values keep the default.
func WithBufferSize(n int) Option {
	return func(b *inMemoryBus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithDropHook registers a callback invoked with the event type whenever an
// event is shed because the queue is full.
func WithDropHook(hook func(event.Type)) Option {
	return func(b *inMemoryBus) { b.onDrop = hook }
}

// inMemoryBus is the default Bus implementation.
type inMemoryBus struct {
	ch        chan event.Event
	listeners []Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	workers   int
	buffer    int
	logger    *slog.Logger
	onDrop    func(event.Type)
}

// New creates a new in-memory Bus with the specified number of worker
// goroutines. If workers is <= 0, the default is used.
func New(workers int, logger *slog.Logger, opts ...Option) Bus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	b := &inMemoryBus{
		workers: workers,
		buffer:  defaultBufferSize,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ch = make(chan event.Event, b.buffer)
	b.startWorkers()
	return b
}

// startWorkers launches the worker goroutines that process events from the
// channel.
func (b *inMemoryBus) startWorkers() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for e := range b.ch {
				b.dispatch(e)
			}
		}()
	}
}

// dispatch calls all registered listeners for the given event. Each listener
// is invoked with panic recovery to prevent one bad listener from affecting
// others.
func (b *inMemoryBus) dispatch(e event.Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("eventbus: listener panicked",
						"event_type", e.Type, "panic", r)
				}
			}()
			l(e)
		}()
	}
}

// Publish enqueues an event. If the buffer is full the event is dropped.
func (b *inMemoryBus) Publish(e event.Event) {
	select {
	case b.ch <- e:
		// enqueued successfully
	default:
		b.logger.Warn("eventbus: buffer full, dropping event", "event_type", e.Type)
		if b.onDrop != nil {
			b.onDrop(e.Type)
		}
	}
}

// Subscribe adds a listener to receive all future events.
func (b *inMemoryBus) Subscribe(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

// Close drains and closes the event channel, then waits for all workers to
// finish.
func (b *inMemoryBus) Close() {
	close(b.ch)
	b.wg.Wait()
}
