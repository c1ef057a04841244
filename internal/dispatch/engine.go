package dispatch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/eventbus"
	"github.com/lettera-hq/notifier/internal/metrics"
)

// ErrNoTitle rejects events without a human-readable title.
var ErrNoTitle = errors.New("event title is required")

// Engine is the producer-facing facade: it validates and normalizes raised
// events, then hands them to the bus for asynchronous dispatch.
type Engine struct {
	bus        eventbus.Bus
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewEngine(bus eventbus.Bus, dispatcher *Dispatcher, m *metrics.Metrics, logger *slog.Logger) *Engine {
	bus.Subscribe(dispatcher.HandleEvent)
	return &Engine{bus: bus, dispatcher: dispatcher, metrics: m, logger: logger}
}

// Raise accepts an event for dispatch. It returns quickly: delivery runs on
// the bus workers. An event whose recipient set normalizes to empty is
// dropped silently, not an error.
func (en *Engine) Raise(e event.Event) error {
	if e.Title == "" {
		return ErrNoTitle
	}
	if !e.Type.Known() {
		// An unrecognized type still resolves to the in-app default plan
		// downstream; classification never blocks delivery.
		en.logger.Warn("event with unrecognized type, routing by defaults", "type", e.Type)
	}

	e = e.Normalize(time.Now())
	if len(e.Recipients) == 0 {
		en.logger.Debug("event has no recipients after normalization", "type", e.Type, "resource_id", e.ResourceID)
		return nil
	}

	en.metrics.EventsReceived.WithLabelValues(string(e.Type)).Inc()
	en.bus.Publish(e)
	return nil
}

// Dispatcher exposes the underlying pipeline for collaborators that need
// direct access (digest flushes, test sends).
func (en *Engine) Dispatcher() *Dispatcher { return en.dispatcher }

// Close stops accepting events and drains the bus queue.
func (en *Engine) Close() {
	en.bus.Close()
}
