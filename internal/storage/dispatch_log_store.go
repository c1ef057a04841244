package storage

import (
	"context"
	"time"
)

// Delivery statuses recorded in the dispatch log.
const (
	DispatchStatusSent        = "sent"
	DispatchStatusFailed      = "failed"
	DispatchStatusUnavailable = "unavailable"
	DispatchStatusSuppressed  = "suppressed"
	DispatchStatusDigested    = "digested"
)

// DispatchLogEntry records one per-channel delivery outcome for operational
// visibility. It is diagnostics, not delivery state: the Notification row is
// the authoritative record.
type DispatchLogEntry struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	ErrorMsg  string    `json:"error_msg"`
	CreatedAt time.Time `json:"created_at"`
}

// DispatchLogStore defines the interface for persisting delivery outcomes.
type DispatchLogStore interface {
	// Log records a delivery outcome.
	Log(ctx context.Context, entry DispatchLogEntry) error
	// List returns the most recent entries, up to limit.
	List(ctx context.Context, limit int) ([]DispatchLogEntry, error)
}
