package tracking

import (
	"context"
	"encoding/json"
	"sort"
)

// DefaultNotificationLimit bounds notification listings when the caller
// does not supply a limit.
const DefaultNotificationLimit = 50

// NotificationInput is the caller-supplied part of a notification.
type NotificationInput struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	Message  string `json:"message"`
}

// CreateNotification appends an unread notification to a user's log.
func (s *Service) CreateNotification(ctx context.Context, userID string, in NotificationInput) (*Notification, error) {
	if userID == "" {
		return nil, validationErrorf("user id is required")
	}
	if in.Type == "" {
		return nil, validationErrorf("notification type is required")
	}
	if in.Message == "" {
		return nil, validationErrorf("notification message is required")
	}

	n := Notification{
		Type:      in.Type,
		DeviceID:  in.DeviceID,
		Message:   in.Message,
		Read:      false,
		Timestamp: s.timestamp(),
	}

	id, err := s.store.Push(ctx, "notifications/"+userID, n)
	if err != nil {
		return nil, upstreamErr(err)
	}

	n.ID = id
	return &n, nil
}

// ListNotifications returns the user's newest limit notifications, newest
// first. A non-positive limit selects the default.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if userID == "" {
		return nil, validationErrorf("user id is required")
	}
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}

	nodes, err := s.store.Tail(ctx, "notifications/"+userID, "timestamp", limit)
	if err != nil {
		return nil, upstreamErr(err)
	}

	notifications := make([]Notification, 0, len(nodes))
	for _, node := range nodes {
		var n Notification
		if err := json.Unmarshal(node.Raw, &n); err != nil {
			return nil, upstreamErr(err)
		}
		n.ID = node.Key
		notifications = append(notifications, n)
	}

	// Newest first; push keys break timestamp ties in arrival order.
	sort.SliceStable(notifications, func(i, j int) bool {
		if notifications[i].Timestamp != notifications[j].Timestamp {
			return notifications[i].Timestamp > notifications[j].Timestamp
		}
		return notifications[i].ID > notifications[j].ID
	})
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

// MarkNotificationRead flags one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return validationErrorf("user id is required")
	}
	if notificationID == "" {
		return validationErrorf("notification id is required")
	}

	var n Notification
	found, err := s.store.Get(ctx, "notifications/"+userID+"/"+notificationID, &n)
	if err != nil {
		return upstreamErr(err)
	}
	if !found {
		return &NotFoundError{Resource: "notification", ID: notificationID}
	}

	err = s.store.Set(ctx, "notifications/"+userID+"/"+notificationID+"/read", true)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification of the user as
// read in one batched write. Already-read entries are skipped; when
// nothing is unread, no write is issued at all.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	if userID == "" {
		return validationErrorf("user id is required")
	}

	nodes, err := s.store.Tail(ctx, "notifications/"+userID, "timestamp", 0)
	if err != nil {
		return upstreamErr(err)
	}

	updates := make(map[string]any)
	for _, node := range nodes {
		var n Notification
		if err := json.Unmarshal(node.Raw, &n); err != nil {
			return upstreamErr(err)
		}
		if !n.Read {
			updates[node.Key+"/read"] = true
		}
	}
	if len(updates) == 0 {
		return nil
	}

	err = s.store.Update(ctx, "notifications/"+userID, updates)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}

// DeleteNotification removes one notification from the user's log.
func (s *Service) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return validationErrorf("user id is required")
	}
	if notificationID == "" {
		return validationErrorf("notification id is required")
	}

	err := s.store.Delete(ctx, "notifications/"+userID+"/"+notificationID)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}
