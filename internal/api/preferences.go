package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/storage"
)

// handleGetPreferences returns the user's effective profile; users who
// never saved anything see the defaults.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	profile, err := s.prefSvc.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, err, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleUpdatePreferences merges a partial patch over the stored profile
// and returns the result.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch prefs.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	profile, err := s.prefSvc.Update(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		s.writeServiceError(w, err, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type putContactRequest struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	TelegramChatID int64  `json:"telegram_chat_id"`
}

// handlePutContact syncs the delivery addresses for a user.
func (s *Server) handlePutContact(w http.ResponseWriter, r *http.Request) {
	var req putContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	err := s.contactSvc.Put(r.Context(), &storage.Contact{
		UserID:         chi.URLParam(r, "userID"),
		Email:          req.Email,
		Phone:          req.Phone,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		s.writeServiceError(w, err, "failed to save contact")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
