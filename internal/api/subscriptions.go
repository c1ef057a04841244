package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lettera-hq/notifier/internal/storage"
)

type registerSubscriptionRequest struct {
	Endpoint  string     `json:"endpoint"`
	Keys      string     `json:"keys"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// handleRegisterSubscription saves a push registration. Re-posting a known
// endpoint reactivates it.
func (s *Server) handleRegisterSubscription(w http.ResponseWriter, r *http.Request) {
	var req registerSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	sub := &storage.PushSubscription{
		UserID:    chi.URLParam(r, "userID"),
		Endpoint:  req.Endpoint,
		Keys:      req.Keys,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.subSvc.Register(r.Context(), sub); err != nil {
		s.writeServiceError(w, err, "failed to register push subscription")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// handleUnregisterSubscription removes a registration. The endpoint is
// passed as a query parameter because push endpoints are not path safe.
func (s *Server) handleUnregisterSubscription(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if err := s.subSvc.Unregister(r.Context(), chi.URLParam(r, "userID"), endpoint); err != nil {
		s.writeServiceError(w, err, "failed to unregister push subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unregistered"})
}
