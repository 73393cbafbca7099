package postgres

import (
	"context"
	"fmt"

	"collab-service/internal/models"

	"gorm.io/gorm"
)

// MessageRepository persists direct messages (realtime.MessageStore).
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveDirectMessage stores the message; gorm fills in ID and CreatedAt, which
// the realtime layer pushes back to both parties.
func (r *MessageRepository) SaveDirectMessage(ctx context.Context, msg *models.DirectMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to save direct message: %w", err)
	}
	return nil
}

// Conversation returns the message history between two users, newest first.
func (r *MessageRepository) Conversation(ctx context.Context, userID, otherID uint, limit, offset int) ([]models.DirectMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var messages []models.DirectMessage
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

// Conversations lists the user's conversation partners with the latest
// message and unread count per partner.
func (r *MessageRepository) Conversations(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id AS user_id,
		       u.username,
		       u.full_name,
		       dm.content AS last_message,
		       dm.created_at AS last_sent_at,
		       (SELECT COUNT(*) FROM direct_messages
		        WHERE sender_id = u.id AND recipient_id = ? AND is_read = FALSE) AS unread_count
		FROM (
		    SELECT DISTINCT ON (partner) *
		    FROM (
		        SELECT *,
		               CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS partner
		        FROM direct_messages
		        WHERE sender_id = ? OR recipient_id = ?
		    ) m
		    ORDER BY partner, created_at DESC
		) dm
		JOIN users u ON u.id = dm.partner
		ORDER BY dm.created_at DESC`,
		userID, userID, userID, userID).Scan(&summaries).Error
	return summaries, err
}

func (r *MessageRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DirectMessage{}).
		Where("recipient_id = ? AND is_read = FALSE", userID).
		Count(&count).Error
	return count, err
}

// MarkConversationRead flags every message from otherID to userID as read.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, userID, otherID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.DirectMessage{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = FALSE", otherID, userID).
		Update("is_read", true).Error
}
