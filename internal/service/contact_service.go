package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lettera-hq/notifier/internal/storage"
)

// ContactService manages the delivery addresses the external channels use.
// The surrounding application owns user identity and syncs the relevant
// fields here.
type ContactService interface {
	// Get returns the synced contact, or (nil, nil) when none exists.
	Get(ctx context.Context, userID string) (*storage.Contact, error)

	// Put replaces the user's contact record.
	Put(ctx context.Context, c *storage.Contact) error
}

type contactService struct {
	repo   storage.ContactStore
	logger *slog.Logger
}

// NewContactService returns a ContactService backed by the given store.
func NewContactService(repo storage.ContactStore, logger *slog.Logger) ContactService {
	return &contactService{repo: repo, logger: logger}
}

func (s *contactService) Get(ctx context.Context, userID string) (*storage.Contact, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading contact: %w", err)
	}
	return c, nil
}

func (s *contactService) Put(ctx context.Context, c *storage.Contact) error {
	if c.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	c.UpdatedAt = time.Now()
	if err := s.repo.Put(ctx, c); err != nil {
		return fmt.Errorf("saving contact: %w", err)
	}
	s.logger.Info("contact synced", "user_id", c.UserID)
	return nil
}
