package models

import "time"

// Event types pushed over the dashboard websocket.
const (
	EventComplaints    = "complaints"
	EventNotifications = "notifications"
	EventSystemLogs    = "system_logs"
	// EventSelection is sent to one dashboard with its selected complaint,
	// or null once the selection is cleared.
	EventSelection     = "selection"
)

// RealtimeEvent is a whole-state message sent to connected dashboards.
// Data always carries a complete snapshot, never a delta.
type RealtimeEvent struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationKind controls toast styling on the dashboard.
type NotificationKind string

const (
	NotificationInfo     NotificationKind = "info"
	NotificationCritical NotificationKind = "critical"
)

// Notification is an ephemeral in-app alert.
type Notification struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Kind        NotificationKind `json:"type"`
	ComplaintID string           `json:"complaintId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}
