// Package service implements the business logic layer between the HTTP
// handlers and the storage, preference and dispatch packages.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lettera-hq/notifier/internal/storage"
)

// InboxService defines the read/update surface of a user's notification
// inbox.
type InboxService interface {
	// List returns the user's notifications matching the filter, newest first.
	List(ctx context.Context, userID string, f storage.NotificationFilter, p storage.Page) ([]storage.Notification, error)

	// UnreadCount returns how many of the user's notifications are unread.
	UnreadCount(ctx context.Context, userID string) (int, error)

	// MarkRead flags the given notifications as read.
	MarkRead(ctx context.Context, userID string, ids []string) error

	// MarkAllRead flags every unread notification of the user as read.
	MarkAllRead(ctx context.Context, userID string) error

	// Delete removes the given notifications.
	Delete(ctx context.Context, userID string, ids []string) error

	// DeleteAll clears the user's inbox.
	DeleteAll(ctx context.Context, userID string) error
}

type inboxService struct {
	repo   storage.NotificationStore
	logger *slog.Logger
}

// NewInboxService returns an InboxService backed by the given store.
func NewInboxService(repo storage.NotificationStore, logger *slog.Logger) InboxService {
	return &inboxService{repo: repo, logger: logger}
}

func (s *inboxService) List(ctx context.Context, userID string, f storage.NotificationFilter, p storage.Page) ([]storage.Notification, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	items, err := s.repo.List(ctx, userID, f, p)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return items, nil
}

func (s *inboxService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (s *inboxService) MarkRead(ctx context.Context, userID string, ids []string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if len(ids) == 0 {
		return &ValidationError{Field: "ids", Message: "at least one notification id is required"}
	}
	if err := s.repo.MarkRead(ctx, userID, ids); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

func (s *inboxService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

func (s *inboxService) Delete(ctx context.Context, userID string, ids []string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if len(ids) == 0 {
		return &ValidationError{Field: "ids", Message: "at least one notification id is required"}
	}
	if err := s.repo.Delete(ctx, userID, ids); err != nil {
		return fmt.Errorf("deleting notifications: %w", err)
	}
	return nil
}

func (s *inboxService) DeleteAll(ctx context.Context, userID string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("clearing inbox: %w", err)
	}
	return nil
}
