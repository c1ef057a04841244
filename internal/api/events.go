package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lettera-hq/notifier/internal/dispatch"
	"github.com/lettera-hq/notifier/internal/event"
)

// raiseEventRequest is the wire shape producers post to /events.
type raiseEventRequest struct {
	Type          string   `json:"type"`
	ResourceID    string   `json:"resource_id"`
	ActorID       string   `json:"actor_id"`
	Recipients    []string `json:"recipients"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	DedupeKey     string   `json:"dedupe_key"`
	DedupeWindowS int      `json:"dedupe_window_seconds"`
	IncludeActor  bool     `json:"include_actor"`
}

// handleRaiseEvent accepts an event for dispatch. Delivery is asynchronous:
// a 202 means the event passed validation and is queued, not that anything
// was sent yet.
func (s *Server) handleRaiseEvent(w http.ResponseWriter, r *http.Request) {
	var req raiseEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	err := s.raiser.Raise(event.Event{
		Type:         event.Type(req.Type),
		ResourceID:   req.ResourceID,
		ActorID:      req.ActorID,
		Recipients:   req.Recipients,
		Title:        req.Title,
		Body:         req.Body,
		DedupeKey:    req.DedupeKey,
		DedupeWindow: time.Duration(req.DedupeWindowS) * time.Second,
		IncludeActor: req.IncludeActor,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrNoTitle) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to raise event", "type", req.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept event")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
