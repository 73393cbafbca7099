package models

import "time"

// Notification types pushed over the realtime layer
const (
	NotificationProjectInvitation = "PROJECT_INVITATION"
	NotificationTaskAssigned      = "TASK_ASSIGNED"
	NotificationMemberRemoved     = "MEMBER_REMOVED"
	NotificationMention           = "MENTION"
)

/** --------------------ENTITIES-------------------- */
// DirectMessage is a persisted one-to-one message between two users.
type DirectMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"index;not null" json:"sender_id"`
	RecipientID uint      `gorm:"index;not null" json:"recipient_id"`
	Content     string    `gorm:"not null" json:"content"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is a persisted per-user alert. The realtime layer never pushes
// one that has not been assigned a durable id first.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"not null" json:"type"`
	Content   string    `gorm:"not null" json:"content"`
	LinkTo    string    `json:"link_to,omitempty"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

/** -------------------- DTOs -------------------- */
type SendMessageRequest struct {
	RecipientID uint   `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// DirectMessageResponse is the wire shape shared by the REST reply, the
// recipient's new_message push and the sender's message_sent confirmation.
type DirectMessageResponse struct {
	DirectMessage
	SenderUsername string `json:"sender_username"`
	SenderName     string `json:"sender_name"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	LastMessage string    `json:"last_message"`
	LastSentAt  time.Time `json:"last_sent_at"`
	UnreadCount int64     `json:"unread_count"`
}
