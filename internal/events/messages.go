package events

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// NotificationEvent is the lightweight message published whenever a
// notification is raised. Consumers fetch the full row from the gateway;
// only identity and routing data travel on the wire.
type NotificationEvent struct {
	UserID         string                `json:"user_id"`
	NotificationID string                `json:"notification_id"`
	Type           core.NotificationType `json:"type"`
	Title          string                `json:"title"`
	Timestamp      time.Time             `json:"timestamp"`
}

func NewNotificationEvent(userID string, n core.Notification) *NotificationEvent {
	return &NotificationEvent{
		UserID:         userID,
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Timestamp:      time.Now(),
	}
}

func (e *NotificationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func NotificationEventFromJSON(data []byte) (*NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
