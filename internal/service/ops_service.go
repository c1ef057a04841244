package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/storage"
)

// TestSender pushes a synthetic notification through one transport. The
// dispatch pipeline implements it.
type TestSender interface {
	TestSend(ctx context.Context, userID string, ch prefs.Channel) error
}

// OpsService exposes the operator surface: delivery diagnostics and
// transport smoke tests.
type OpsService interface {
	// RecentDispatches returns the latest per-channel delivery outcomes.
	RecentDispatches(ctx context.Context, limit int) ([]storage.DispatchLogEntry, error)

	// TestSend delivers a synthetic notification to the user over one
	// channel, bypassing preferences and dedupe.
	TestSend(ctx context.Context, userID string, ch prefs.Channel) error
}

const defaultDispatchLogLimit = 100

type opsService struct {
	log    storage.DispatchLogStore
	sender TestSender
	logger *slog.Logger
}

// NewOpsService returns an OpsService over the dispatch log and pipeline.
func NewOpsService(log storage.DispatchLogStore, sender TestSender, logger *slog.Logger) OpsService {
	return &opsService{log: log, sender: sender, logger: logger}
}

func (s *opsService) RecentDispatches(ctx context.Context, limit int) ([]storage.DispatchLogEntry, error) {
	if limit <= 0 {
		limit = defaultDispatchLogLimit
	}
	entries, err := s.log.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing dispatch log: %w", err)
	}
	return entries, nil
}

func (s *opsService) TestSend(ctx context.Context, userID string, ch prefs.Channel) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if !ch.Known() {
		return &ValidationError{Field: "channel", Message: fmt.Sprintf("unknown channel %q", ch)}
	}
	s.logger.Info("test send requested", "user_id", userID, "channel", ch)
	return s.sender.TestSend(ctx, userID, ch)
}
