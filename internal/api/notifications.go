package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lettera-hq/notifier/internal/service"
	"github.com/lettera-hq/notifier/internal/storage"
)

// handleListNotifications returns a page of the user's inbox, newest first.
// Filters: ?unread=true|false, ?type=, ?resource_id=, ?limit=, ?offset=.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()

	var filter storage.NotificationFilter
	if v := q.Get("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid unread filter")
			return
		}
		read := !unread
		filter.Read = &read
	}
	filter.Type = q.Get("type")
	filter.ResourceID = q.Get("resource_id")

	page := storage.Page{}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page.Offset = n
		}
	}

	items, err := s.inboxSvc.List(r.Context(), userID, filter, page)
	if err != nil {
		s.writeServiceError(w, err, "failed to list notifications")
		return
	}
	if items == nil {
		items = []storage.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.inboxSvc.UnreadCount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, err, "failed to count unread notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	if err := s.inboxSvc.MarkRead(r.Context(), chi.URLParam(r, "userID"), req.IDs); err != nil {
		s.writeServiceError(w, err, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.inboxSvc.MarkAllRead(r.Context(), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "notificationID")
	if err := s.inboxSvc.Delete(r.Context(), userID, []string{id}); err != nil {
		s.writeServiceError(w, err, "failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearInbox(w http.ResponseWriter, r *http.Request) {
	if err := s.inboxSvc.DeleteAll(r.Context(), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err, "failed to clear inbox")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service-layer error types onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var ve *service.ValidationError
	var nfe *service.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nfe):
		writeError(w, http.StatusNotFound, nfe.Error())
	default:
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
