package realtime

import "encoding/json"

// Event names exchanged over a connection. Upstream events come from clients,
// downstream events are pushed by the server; the names are part of the wire
// contract and mirror the REST API documentation.
const (
	// Upstream (client -> server)
	EventJoinProject  = "join_project"
	EventLeaveProject = "leave_project"
	EventSendMessage  = "send_message"
	EventTypingStart  = "typing_start"
	EventTypingStop   = "typing_stop"

	// Downstream (server -> client)
	EventJoinedProject     = "joined_project"
	EventError             = "error"
	EventNewMessage        = "new_message"
	EventMessageSent       = "message_sent"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventProjectActivity   = "project_activity"
	EventTaskUpdate        = "task_update"
	EventNewComment        = "new_comment"
	EventNewNotification   = "new_notification"
)

// Envelope is the frame format for both directions: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Upstream payloads

type JoinProjectPayload struct {
	ProjectID uint `json:"project_id"`
}

type LeaveProjectPayload struct {
	ProjectID uint `json:"project_id"`
}

type SendMessagePayload struct {
	RecipientID uint   `json:"recipient_id"`
	Content     string `json:"content"`
}

type TypingPayload struct {
	RecipientID uint `json:"recipient_id"`
}

// Downstream payloads

type JoinedProjectPayload struct {
	ProjectID uint `json:"project_id"`
}

// ErrorPayload is the single shape every non-fatal failure surfaces as.
type ErrorPayload struct {
	Message string `json:"message"`
}

type TypingEventPayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

type TaskUpdatePayload struct {
	Type string `json:"type"` // created, updated, deleted
	Task any    `json:"task"`
}
