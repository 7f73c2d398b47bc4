package api

import (
	"net/http"
	"strconv"

	"geotrack.dev/geotrack/internal/tracking"
)

// notificationRequest is the body of POST and PUT /notifications.
type notificationRequest struct {
	UserID         string                     `json:"userId"`
	NotificationID string                     `json:"notificationId,omitempty"`
	MarkAll        bool                       `json:"markAll,omitempty"`
	Notification   tracking.NotificationInput `json:"notificationData"`
}

// handleListNotifications serves GET /notifications?userId=&limit=.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.respondBadRequest(w, "invalid limit "+strconv.Quote(raw))
			return
		}
		limit = parsed
	}

	notifications, err := s.service.ListNotifications(r.Context(), query.Get("userId"), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// handleCreateNotification serves POST /notifications.
func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	notification, err := s.service.CreateNotification(r.Context(), req.UserID, req.Notification)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"notificationId": notification.ID, "notification": notification})
}

// handleMarkNotifications serves PUT /notifications: one notification by
// ID, or every unread one with markAll.
func (s *Server) handleMarkNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	var err error
	if req.MarkAll {
		err = s.service.MarkAllNotificationsRead(r.Context(), req.UserID)
	} else {
		err = s.service.MarkNotificationRead(r.Context(), req.UserID, req.NotificationID)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

// handleDeleteNotification serves DELETE /notifications?userId=&notificationId=.
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	err := s.service.DeleteNotification(r.Context(), query.Get("userId"), query.Get("notificationId"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}
