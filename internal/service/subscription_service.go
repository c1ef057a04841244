package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lettera-hq/notifier/internal/storage"
)

// SubscriptionService manages push delivery registrations.
type SubscriptionService interface {
	// Register saves a push registration for a user. Re-registering a known
	// endpoint reactivates it.
	Register(ctx context.Context, sub *storage.PushSubscription) error

	// Unregister removes one of the user's registrations by endpoint.
	Unregister(ctx context.Context, userID, endpoint string) error

	// ListActive returns the user's live registrations.
	ListActive(ctx context.Context, userID string) ([]storage.PushSubscription, error)
}

type subscriptionService struct {
	repo   storage.SubscriptionStore
	logger *slog.Logger
}

// NewSubscriptionService returns a SubscriptionService backed by the given
// store.
func NewSubscriptionService(repo storage.SubscriptionStore, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{repo: repo, logger: logger}
}

func (s *subscriptionService) Register(ctx context.Context, sub *storage.PushSubscription) error {
	if sub.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if sub.Endpoint == "" {
		return &ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	sub.Active = true

	if err := s.repo.Save(ctx, sub); err != nil {
		return fmt.Errorf("saving push subscription: %w", err)
	}
	s.logger.Info("push subscription registered", "user_id", sub.UserID)
	return nil
}

func (s *subscriptionService) Unregister(ctx context.Context, userID, endpoint string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if endpoint == "" {
		return &ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if err := s.repo.Delete(ctx, userID, endpoint); err != nil {
		return fmt.Errorf("deleting push subscription: %w", err)
	}
	return nil
}

func (s *subscriptionService) ListActive(ctx context.Context, userID string) ([]storage.PushSubscription, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	subs, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing push subscriptions: %w", err)
	}
	return subs, nil
}
