package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lettera-hq/notifier/internal/channel"
	"github.com/lettera-hq/notifier/internal/dedupe"
	"github.com/lettera-hq/notifier/internal/digest"
	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/metrics"
	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// memNotifications keeps created rows in memory.
type memNotifications struct {
	mu   sync.Mutex
	rows []storage.Notification
}

func (m *memNotifications) Create(_ context.Context, n *storage.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifications) created() []storage.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.Notification, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *memNotifications) List(context.Context, string, storage.NotificationFilter, storage.Page) ([]storage.Notification, error) {
	return nil, nil
}
func (m *memNotifications) UnreadCount(context.Context, string) (int, error) { return 0, nil }
func (m *memNotifications) MarkRead(context.Context, string, []string) error { return nil }
func (m *memNotifications) MarkAllRead(context.Context, string) error        { return nil }
func (m *memNotifications) Delete(context.Context, string, []string) error   { return nil }
func (m *memNotifications) DeleteAll(context.Context, string) error          { return nil }
func (m *memNotifications) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// memDedupe is an in-memory DedupeStore with the same reserve semantics as
// the SQLite one.
type memDedupe struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func newMemDedupe() *memDedupe {
	return &memDedupe{keys: make(map[string]time.Time)}
}

func (m *memDedupe) Reserve(_ context.Context, fingerprint string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.keys[fingerprint]; ok && exp.After(time.Now()) {
		return storage.ErrDuplicate
	}
	m.keys[fingerprint] = expiresAt
	return nil
}

func (m *memDedupe) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

// memContacts serves a fixed contact per user.
type memContacts struct {
	contacts map[string]*storage.Contact
}

func (m *memContacts) Get(_ context.Context, userID string) (*storage.Contact, error) {
	return m.contacts[userID], nil
}
func (m *memContacts) Put(context.Context, *storage.Contact) error { return nil }

// memSubscriptions serves fixed active subscriptions per user.
type memSubscriptions struct {
	mu          sync.Mutex
	active      map[string][]storage.PushSubscription
	invalidated []string
}

func (m *memSubscriptions) Save(context.Context, *storage.PushSubscription) error { return nil }
func (m *memSubscriptions) Delete(context.Context, string, string) error          { return nil }
func (m *memSubscriptions) Invalidate(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, endpoint)
	return nil
}
func (m *memSubscriptions) ListActive(_ context.Context, userID string) ([]storage.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[userID], nil
}
func (m *memSubscriptions) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

// memDispatchLog collects logged outcomes.
type memDispatchLog struct {
	mu      sync.Mutex
	entries []storage.DispatchLogEntry
}

func (m *memDispatchLog) Log(_ context.Context, entry storage.DispatchLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memDispatchLog) List(context.Context, int) ([]storage.DispatchLogEntry, error) {
	return nil, nil
}

func (m *memDispatchLog) byStatus(status string) []storage.DispatchLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.DispatchLogEntry
	for _, e := range m.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

func (m *memDispatchLog) forChannel(ch prefs.Channel) []storage.DispatchLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.DispatchLogEntry
	for _, e := range m.entries {
		if e.Channel == string(ch) {
			out = append(out, e)
		}
	}
	return out
}

// memProfileSource serves profiles for the preference cache.
type memProfileSource struct {
	profiles map[string]*prefs.Profile
}

func (m *memProfileSource) Get(_ context.Context, userID string) (*prefs.Profile, error) {
	return m.profiles[userID], nil
}

// recordingSender records every send and pops errors off a preset queue.
type recordingSender struct {
	ch prefs.Channel

	mu    sync.Mutex
	sends []channel.Message
	rcpts []channel.Recipient
	errs  []error
}

func (s *recordingSender) Channel() prefs.Channel { return s.ch }

func (s *recordingSender) Send(_ context.Context, rcpt channel.Recipient, msg channel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, msg)
	s.rcpts = append(s.rcpts, rcpt)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

// stalledSender blocks without ever consulting its context, like a
// transport whose HTTP round trip is already in flight.
type stalledSender struct {
	ch    prefs.Channel
	stall time.Duration
}

func (s *stalledSender) Channel() prefs.Channel { return s.ch }

func (s *stalledSender) Send(context.Context, channel.Recipient, channel.Message) error {
	time.Sleep(s.stall)
	return nil
}

func (s *recordingSender) sent() []channel.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]channel.Message, len(s.sends))
	copy(out, s.sends)
	return out
}

// fixture bundles a dispatcher with its observable collaborators.
type fixture struct {
	dispatcher    *Dispatcher
	notifications *memNotifications
	dispatchLog   *memDispatchLog
	digests       *digest.Buffer
	subs          *memSubscriptions
	senders       map[prefs.Channel]*recordingSender
}

type fixtureOpts struct {
	profiles     map[string]*prefs.Profile
	contacts     map[string]*storage.Contact
	channels     []prefs.Channel
	extraSenders []channel.Sender
	sendTimeout  time.Duration
	now          time.Time
}

func newFixture(opts fixtureOpts) *fixture {
	if len(opts.channels) == 0 {
		opts.channels = []prefs.Channel{
			prefs.ChannelInApp, prefs.ChannelEmail, prefs.ChannelChat,
			prefs.ChannelSMS, prefs.ChannelPush,
		}
	}
	if opts.now.IsZero() {
		opts.now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	}
	if opts.sendTimeout <= 0 {
		opts.sendTimeout = time.Second
	}

	senders := make(map[prefs.Channel]*recordingSender, len(opts.channels))
	var list []channel.Sender
	for _, ch := range opts.channels {
		s := &recordingSender{ch: ch}
		senders[ch] = s
		list = append(list, s)
	}
	list = append(list, opts.extraSenders...)

	notifications := &memNotifications{}
	dispatchLog := &memDispatchLog{}
	digests := digest.NewBuffer()
	subs := &memSubscriptions{active: map[string][]storage.PushSubscription{}}

	guard := dedupe.NewGuard(newMemDedupe(), func(event.Type) time.Duration { return time.Minute })

	d := New(Config{
		Notifications: notifications,
		Contacts:      &memContacts{contacts: opts.contacts},
		Subscriptions: subs,
		DispatchLog:   dispatchLog,
		Profiles:      prefs.NewCache(&memProfileSource{profiles: opts.profiles}, time.Minute, testLogger()),
		Resolver:      prefs.NewResolver(prefs.DefaultMatrix()),
		Guard:         guard,
		Registry:      channel.NewRegistry(list...),
		Digests:       digests,
		Metrics:       metrics.New(),
		Logger:        testLogger(),
		SendTimeout:   opts.sendTimeout,
		SendRate:      1000,
	})
	d.now = func() time.Time { return opts.now }

	return &fixture{
		dispatcher:    d,
		notifications: notifications,
		dispatchLog:   dispatchLog,
		digests:       digests,
		subs:          subs,
		senders:       senders,
	}
}
