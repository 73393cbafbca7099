package realtime

import (
	"context"
	"errors"
	"fmt"

	"collab-service/internal/models"
)

var (
	ErrMissingRecipient = errors.New("recipient id is required")
	ErrEmptyContent     = errors.New("message content is required")
)

// DirectMessageChannel is the send/typing flow for one-to-one messages,
// layered on the room router and presence registry. Messages are persisted
// before any push; typing indicators are never persisted and are silently
// dropped when the recipient is offline, since a stale indicator delivered
// late is worse than a dropped one.
type DirectMessageChannel struct {
	dispatcher *EventDispatcher
	presence   *PresenceRegistry
	messages   MessageStore
}

func NewDirectMessageChannel(dispatcher *EventDispatcher, presence *PresenceRegistry, messages MessageStore) *DirectMessageChannel {
	return &DirectMessageChannel{
		dispatcher: dispatcher,
		presence:   presence,
		messages:   messages,
	}
}

// Send validates, persists and delivers a direct message from the sender
// connection. The recipient gets new_message with the sender's display fields
// merged in; the sender gets message_sent carrying the same stored record so
// it learns the generated id and timestamp. On any failure the error goes
// back to the caller and no push happens.
func (dm *DirectMessageChannel) Send(ctx context.Context, sender *Client, recipientID uint, content string) (*models.DirectMessageResponse, error) {
	if recipientID == 0 {
		return nil, ErrMissingRecipient
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	msg := &models.DirectMessage{
		SenderID:    sender.userID,
		RecipientID: recipientID,
		Content:     content,
	}
	if err := dm.messages.SaveDirectMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist direct message: %w", err)
	}

	record := &models.DirectMessageResponse{
		DirectMessage:  *msg,
		SenderUsername: sender.username,
		SenderName:     sender.fullName,
	}

	// Recipient push first, then the sender confirmation on its own
	// connection (not the sender's user room: a second device of the sender
	// did not send this message and gets nothing).
	dm.dispatcher.SendToUser(recipientID, EventNewMessage, record)
	_ = sender.SendEvent(EventMessageSent, record)

	return record, nil
}

// TypingStart signals the recipient that the sender began typing. Delivered
// only while the recipient is online; otherwise dropped without error.
func (dm *DirectMessageChannel) TypingStart(sender *Client, recipientID uint) {
	dm.signalTyping(sender, recipientID, EventUserTyping)
}

// TypingStop signals the recipient that the sender stopped typing.
func (dm *DirectMessageChannel) TypingStop(sender *Client, recipientID uint) {
	dm.signalTyping(sender, recipientID, EventUserStoppedTyping)
}

func (dm *DirectMessageChannel) signalTyping(sender *Client, recipientID uint, event string) {
	if recipientID == 0 || !dm.presence.IsOnline(recipientID) {
		return
	}
	dm.dispatcher.SendToUser(recipientID, event, TypingEventPayload{
		UserID:   sender.userID,
		Username: sender.username,
	})
}
