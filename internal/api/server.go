// Package api implements the REST and websocket surface of the notifier.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lettera-hq/notifier/internal/channel"
	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/service"
)

const errInvalidJSONBody = "invalid JSON body"

// Raiser accepts validated events for asynchronous dispatch. The dispatch
// engine implements it.
type Raiser interface {
	Raise(e event.Event) error
}

// Server holds all dependencies for the REST API handlers.
type Server struct {
	raiser     Raiser
	inboxSvc   service.InboxService
	prefSvc    service.PreferenceService
	subSvc     service.SubscriptionService
	contactSvc service.ContactService
	opsSvc     service.OpsService
	hub        *channel.Hub
	logger     *slog.Logger
}

// New creates a new API Server backed by the provided services.
func New(
	raiser Raiser,
	inboxSvc service.InboxService,
	prefSvc service.PreferenceService,
	subSvc service.SubscriptionService,
	contactSvc service.ContactService,
	opsSvc service.OpsService,
	hub *channel.Hub,
	logger *slog.Logger,
) *Server {
	return &Server{
		raiser:     raiser,
		inboxSvc:   inboxSvc,
		prefSvc:    prefSvc,
		subSvc:     subSvc,
		contactSvc: contactSvc,
		opsSvc:     opsSvc,
		hub:        hub,
		logger:     logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Event intake
	r.Post("/events", s.handleRaiseEvent)

	// Inbox
	r.Get("/users/{userID}/notifications", s.handleListNotifications)
	r.Get("/users/{userID}/notifications/unread-count", s.handleUnreadCount)
	r.Post("/users/{userID}/notifications/read", s.handleMarkRead)
	r.Post("/users/{userID}/notifications/read-all", s.handleMarkAllRead)
	r.Delete("/users/{userID}/notifications/{notificationID}", s.handleDeleteNotification)
	r.Delete("/users/{userID}/notifications", s.handleClearInbox)

	// Live in-app stream
	r.Get("/users/{userID}/stream", s.handleStream)

	// Preferences and addressing
	r.Get("/users/{userID}/preferences", s.handleGetPreferences)
	r.Patch("/users/{userID}/preferences", s.handleUpdatePreferences)
	r.Put("/users/{userID}/contact", s.handlePutContact)

	// Push registrations
	r.Post("/users/{userID}/push-subscriptions", s.handleRegisterSubscription)
	r.Delete("/users/{userID}/push-subscriptions", s.handleUnregisterSubscription)

	// Operator surface
	r.Get("/dispatch-log", s.handleListDispatchLog)
	r.Post("/test-send", s.handleTestSend)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
