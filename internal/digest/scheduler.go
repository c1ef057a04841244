package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lettera-hq/notifier/internal/config"
	"github.com/lettera-hq/notifier/internal/prefs"
)

// FlushFunc delivers one user's drained digest items. The dispatcher
// supplies it so delivery goes through the same senders and bookkeeping as
// instant notifications.
type FlushFunc func(ctx context.Context, period prefs.DigestFrequency, userID string, items []Item)

// NotificationPurger is the slice of the notification store the retention
// sweep needs.
type NotificationPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiryPurger covers stores that expire rows by timestamp (push
// subscriptions, dedupe reservations).
type ExpiryPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config holds the scheduler wiring.
type Config struct {
	Buffer *Buffer
	Flush  FlushFunc
	Policy *config.Policy

	// Retention sweep targets.
	Notifications NotificationPurger
	Subscriptions ExpiryPurger
	Dedupe        ExpiryPurger

	Logger *slog.Logger
}

// Scheduler runs the periodic digest flushes and the retention sweep on
// gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	s := &Scheduler{cron: cron, cfg: cfg, logger: cfg.Logger}

	jobs := []struct {
		name string
		cron string
		run  func()
	}{
		{"digest_daily", cfg.Policy.Digest.DailyCron, func() { s.FlushPeriod(context.Background(), prefs.DigestDaily) }},
		{"digest_weekly", cfg.Policy.Digest.WeeklyCron, func() { s.FlushPeriod(context.Background(), prefs.DigestWeekly) }},
		{"retention_sweep", cfg.Policy.Retention.SweepCron, func() { s.Sweep(context.Background()) }},
	}
	for _, j := range jobs {
		if _, err := cron.NewJob(gocron.CronJob(j.cron, false), gocron.NewTask(j.run), gocron.WithName(j.name)); err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("digest scheduler started",
		"daily_cron", s.cfg.Policy.Digest.DailyCron,
		"weekly_cron", s.cfg.Policy.Digest.WeeklyCron,
		"sweep_cron", s.cfg.Policy.Retention.SweepCron)
}

func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// FlushPeriod drains every bucket for the period and hands each user's
// items to the flush callback.
func (s *Scheduler) FlushPeriod(ctx context.Context, period prefs.DigestFrequency) {
	pending := s.cfg.Buffer.Drain(period)
	if len(pending) == 0 {
		return
	}

	total := 0
	for userID, items := range pending {
		if len(items) == 0 {
			continue
		}
		total += len(items)
		s.cfg.Flush(ctx, period, userID, items)
	}
	s.logger.Info("digest flushed", "period", period, "users", len(pending), "items", total)
}

// Sweep purges aged notifications, expired push registrations and stale
// dedupe reservations.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -s.cfg.Policy.Retention.NotificationDays)

	purged, err := s.cfg.Notifications.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("notification purge failed", "error", err)
	}
	subs, err := s.cfg.Subscriptions.PurgeExpired(ctx, now)
	if err != nil {
		s.logger.Error("subscription purge failed", "error", err)
	}
	keys, err := s.cfg.Dedupe.PurgeExpired(ctx, now)
	if err != nil {
		s.logger.Error("dedupe purge failed", "error", err)
	}
	s.logger.Info("retention sweep finished",
		"notifications", purged, "subscriptions", subs, "dedupe_keys", keys)
}
