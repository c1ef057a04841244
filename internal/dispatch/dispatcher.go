// Package dispatch runs the per-recipient delivery pipeline: dedupe guard,
// preference resolution, inbox persistence, quiet-hours gating, digest
// deferral and concurrent channel fan-out.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lettera-hq/notifier/internal/channel"
	"github.com/lettera-hq/notifier/internal/dedupe"
	"github.com/lettera-hq/notifier/internal/digest"
	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/metrics"
	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/quiet"
	"github.com/lettera-hq/notifier/internal/storage"
)

const (
	defaultSendTimeout = 15 * time.Second
	defaultSendRate    = 10
)

// Config wires the dispatcher's collaborators.
type Config struct {
	Notifications storage.NotificationStore
	Contacts      storage.ContactStore
	Subscriptions storage.SubscriptionStore
	DispatchLog   storage.DispatchLogStore

	Profiles *prefs.Cache
	Resolver *prefs.Resolver
	Guard    *dedupe.Guard
	Registry *channel.Registry
	Digests  *digest.Buffer

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// SendTimeout bounds one channel send, retry included separately.
	SendTimeout time.Duration
	// SendRate caps outbound sends per second across all channels.
	SendRate int
}

// Dispatcher consumes events off the bus and runs one independent delivery
// pipeline per recipient. A failure for one recipient or channel never
// affects the others.
type Dispatcher struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg Config) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = defaultSendRate
	}
	return &Dispatcher{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendRate),
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// HandleEvent is the bus listener. It blocks until every recipient's
// pipeline has finished, which keeps the bus worker pool as the global
// concurrency bound.
func (d *Dispatcher) HandleEvent(e event.Event) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, userID := range e.Recipients {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			d.deliverTo(ctx, e, userID)
		}(userID)
	}
	wg.Wait()
}

// deliverTo runs the full pipeline for one recipient.
func (d *Dispatcher) deliverTo(ctx context.Context, e event.Event, userID string) {
	fingerprint := e.FingerprintFor(userID)
	deliver, err := d.cfg.Guard.ShouldDeliver(ctx, fingerprint, d.cfg.Guard.Window(e))
	if err != nil {
		d.logger.Warn("dedupe check failed, delivering anyway",
			"user_id", userID, "type", e.Type, "error", err)
	}
	if !deliver {
		d.cfg.Metrics.Deduplicated.Inc()
		d.logger.Debug("duplicate suppressed",
			"user_id", userID, "type", e.Type, "fingerprint", fingerprint)
		return
	}

	profile, err := d.cfg.Profiles.Get(ctx, userID)
	if err != nil {
		// Resolution is total: a missing profile means defaults.
		d.logger.Warn("profile load failed, using defaults", "user_id", userID, "error", err)
		profile = nil
	}
	plan := d.cfg.Resolver.Resolve(e.Type, profile)

	// The inbox row is written regardless of what the channels do with
	// this notification; listing and read state work even when every
	// delivery is suppressed or fails.
	n := &storage.Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       string(e.Type),
		Title:      e.Title,
		Body:       e.Body,
		Priority:   string(plan.Priority),
		ResourceID: e.ResourceID,
		ActorID:    e.ActorID,
		CreatedAt:  e.OccurredAt,
	}
	if err := d.cfg.Notifications.Create(ctx, n); err != nil {
		d.logger.Error("failed to persist notification", "user_id", userID, "type", e.Type, "error", err)
	}

	msg := channel.Message{
		NotificationID: n.ID,
		EventType:      e.Type,
		Priority:       plan.Priority,
		Title:          e.Title,
		Body:           e.Body,
		ResourceID:     e.ResourceID,
	}

	// In-app delivery is internal: it rides on the inbox row and the live
	// websocket stream, so quiet hours and digests never touch it.
	if plan.Includes(prefs.ChannelInApp) {
		d.sendOne(ctx, e.Type, channel.Recipient{UserID: userID}, prefs.ChannelInApp, msg)
	}

	external := externalChannels(plan)
	if len(external) == 0 {
		return
	}

	quietCfg, freq := prefs.QuietHours{}, prefs.DigestInstant
	if profile != nil {
		quietCfg, freq = profile.Quiet, profile.Digest
	}

	item := digest.Item{
		NotificationID: n.ID,
		EventType:      e.Type,
		Priority:       plan.Priority,
		Title:          e.Title,
		Body:           e.Body,
		ResourceID:     e.ResourceID,
		Channels:       external,
		BufferedAt:     d.now(),
	}
	digesting := freq == prefs.DigestDaily || freq == prefs.DigestWeekly

	if quiet.IsSuppressed(d.now(), quietCfg, plan.Priority) {
		// Quiet hours hold external delivery. With a non-instant cadence
		// the notification carries over into the next digest; otherwise
		// the inbox row is all the user gets.
		if digesting {
			d.cfg.Digests.Offer(freq, userID, item)
		}
		for _, ch := range external {
			d.cfg.Metrics.QuietSuppressed.Inc()
			status := storage.DispatchStatusSuppressed
			if digesting {
				status = storage.DispatchStatusDigested
			}
			d.logDispatch(ctx, e.Type, userID, ch, status, "quiet hours")
		}
		return
	}

	if digesting && !plan.Priority.AtLeast(prefs.PriorityHigh) {
		d.cfg.Digests.Offer(freq, userID, item)
		for _, ch := range external {
			d.cfg.Metrics.DigestBuffered.Inc()
			d.logDispatch(ctx, e.Type, userID, ch, storage.DispatchStatusDigested, "")
		}
		return
	}

	d.fanOut(ctx, e.Type, userID, external, msg)
}

// fanOut sends over every external channel concurrently.
func (d *Dispatcher) fanOut(ctx context.Context, eventType event.Type, userID string, channels []prefs.Channel, msg channel.Message) {
	rcpt := d.loadRecipient(ctx, userID)

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch prefs.Channel) {
			defer wg.Done()
			d.sendOne(ctx, eventType, rcpt, ch, msg)
		}(ch)
	}
	wg.Wait()
}

// sendOne performs one channel delivery with rate limiting, a per-send
// timeout and a single retry on transient failure, then records the
// outcome.
func (d *Dispatcher) sendOne(ctx context.Context, eventType event.Type, rcpt channel.Recipient, ch prefs.Channel, msg channel.Message) {
	sender, ok := d.cfg.Registry.Get(ch)
	if !ok {
		d.cfg.Metrics.Deliveries.WithLabelValues(string(ch), storage.DispatchStatusUnavailable).Inc()
		d.logDispatch(ctx, eventType, rcpt.UserID, ch, storage.DispatchStatusUnavailable, "no transport configured")
		return
	}

	start := d.now()
	err := d.attempt(ctx, sender, rcpt, msg)
	if err != nil && channel.KindOf(err) == channel.FailureTransient {
		err = d.attempt(ctx, sender, rcpt, msg)
	}
	d.cfg.Metrics.SendDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())

	status, errMsg := storage.DispatchStatusSent, ""
	if err != nil {
		errMsg = err.Error()
		status = storage.DispatchStatusFailed
		if channel.KindOf(err) == channel.FailureUnavailable {
			status = storage.DispatchStatusUnavailable
		}
		d.logger.Warn("channel delivery failed",
			"user_id", rcpt.UserID, "channel", ch, "type", eventType,
			"kind", channel.KindOf(err), "error", err)
	}
	d.cfg.Metrics.Deliveries.WithLabelValues(string(ch), status).Inc()
	d.logDispatch(ctx, eventType, rcpt.UserID, ch, status, errMsg)
}

func (d *Dispatcher) attempt(ctx context.Context, sender channel.Sender, rcpt channel.Recipient, msg channel.Message) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return channel.Transient(err)
	}
	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	// The deadline must hold even for a transport that never checks its
	// context. The orphaned call winds down against the client timeout
	// configured on the transport itself.
	done := make(chan error, 1)
	go func() { done <- sender.Send(sctx, rcpt, msg) }()
	select {
	case err := <-done:
		return err
	case <-sctx.Done():
		return channel.Transient(fmt.Errorf("send timed out after %s", d.cfg.SendTimeout))
	}
}

// loadRecipient assembles the addressing for external sends. Missing
// contact data is not an error here: the individual sender reports a
// permanent failure for the address it lacks.
func (d *Dispatcher) loadRecipient(ctx context.Context, userID string) channel.Recipient {
	rcpt := channel.Recipient{UserID: userID}

	contact, err := d.cfg.Contacts.Get(ctx, userID)
	if err != nil {
		d.logger.Warn("contact load failed", "user_id", userID, "error", err)
	} else if contact != nil {
		rcpt.Email = contact.Email
		rcpt.Phone = contact.Phone
		rcpt.TelegramChatID = contact.TelegramChatID
	}

	subs, err := d.cfg.Subscriptions.ListActive(ctx, userID)
	if err != nil {
		d.logger.Warn("subscription load failed", "user_id", userID, "error", err)
	} else {
		rcpt.Subscriptions = subs
	}
	return rcpt
}

func (d *Dispatcher) logDispatch(ctx context.Context, eventType event.Type, userID string, ch prefs.Channel, status, errMsg string) {
	err := d.cfg.DispatchLog.Log(ctx, storage.DispatchLogEntry{
		EventType: string(eventType),
		UserID:    userID,
		Channel:   string(ch),
		Status:    status,
		ErrorMsg:  errMsg,
		CreatedAt: d.now(),
	})
	if err != nil {
		d.logger.Warn("dispatch log write failed", "user_id", userID, "channel", ch, "error", err)
	}
}

// externalChannels returns the plan's channels minus in-app, which is
// handled inline.
func externalChannels(plan prefs.DeliveryPlan) []prefs.Channel {
	out := make([]prefs.Channel, 0, len(plan.Channels))
	for _, ch := range plan.Channels {
		if ch == prefs.ChannelInApp {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// FlushDigest delivers one user's drained digest items as a single batched
// message per channel. It satisfies digest.FlushFunc.
func (d *Dispatcher) FlushDigest(ctx context.Context, period prefs.DigestFrequency, userID string, items []digest.Item) {
	d.cfg.Metrics.DigestFlushes.WithLabelValues(string(period)).Inc()

	msg := buildDigestMessage(period, items)
	channels := unionChannels(items)
	rcpt := d.loadRecipient(ctx, userID)

	for _, ch := range channels {
		d.sendOne(ctx, event.TypeSystem, rcpt, ch, msg)
	}
}

// buildDigestMessage folds the deferred items into one summary message.
// Priority is the maximum across items so transports can still mark an
// urgent batch.
func buildDigestMessage(period prefs.DigestFrequency, items []digest.Item) channel.Message {
	maxPriority := prefs.PriorityLow
	var lines []string
	for _, it := range items {
		if it.Priority.AtLeast(maxPriority) {
			maxPriority = it.Priority
		}
		lines = append(lines, "• "+it.Title)
	}

	label := "Daily"
	if period == prefs.DigestWeekly {
		label = "Weekly"
	}
	return channel.Message{
		EventType: event.TypeSystem,
		Priority:  maxPriority,
		Title:     fmt.Sprintf("%s digest: %d notification(s)", label, len(items)),
		Body:      strings.Join(lines, "\n"),
		Digest:    true,
		ItemCount: len(items),
	}
}

func unionChannels(items []digest.Item) []prefs.Channel {
	seen := make(map[prefs.Channel]struct{})
	var out []prefs.Channel
	for _, it := range items {
		for _, ch := range it.Channels {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	return out
}

// TestSend pushes a synthetic notification through one channel, bypassing
// preferences and dedupe. Operators use it to verify transport wiring.
func (d *Dispatcher) TestSend(ctx context.Context, userID string, ch prefs.Channel) error {
	sender, ok := d.cfg.Registry.Get(ch)
	if !ok {
		return channel.Unavailable(string(ch))
	}
	rcpt := d.loadRecipient(ctx, userID)
	msg := channel.Message{
		EventType: event.TypeSystem,
		Priority:  prefs.PriorityNormal,
		Title:     "Test notification",
		Body:      fmt.Sprintf("Delivery test over %s sent at %s.", ch, d.now().Format(time.RFC3339)),
	}

	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	return sender.Send(sctx, rcpt, msg)
}
