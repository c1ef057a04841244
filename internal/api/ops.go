package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/lettera-hq/notifier/internal/channel"
	"github.com/lettera-hq/notifier/internal/prefs"
)

// handleListDispatchLog returns recent delivery outcomes. Accepts an
// optional ?limit=N query parameter.
func (s *Server) handleListDispatchLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.opsSvc.RecentDispatches(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err, "failed to list dispatch log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type testSendRequest struct {
	UserID  string `json:"user_id"`
	Channel string `json:"channel"`
}

// handleTestSend delivers a synthetic notification over one channel so an
// operator can verify transport wiring.
func (s *Server) handleTestSend(w http.ResponseWriter, r *http.Request) {
	var req testSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	err := s.opsSvc.TestSend(r.Context(), req.UserID, prefs.Channel(req.Channel))
	if err != nil {
		if channel.KindOf(err) == channel.FailureUnavailable {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeServiceError(w, err, "test send failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
