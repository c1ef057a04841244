package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The notifier sits behind the application's own gateway; origin
	// policy is enforced there.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStream upgrades to a websocket and attaches the connection to the
// in-app hub. The server only writes; the read loop exists to observe
// close and ping frames.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := s.hub.Attach(userID, ws)
	defer s.hub.Detach(conn)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
