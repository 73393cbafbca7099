package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"collab-service/internal/models"
)

// ActivityPublisher mirrors project-room broadcasts onto an external stream
// for auditing. Implementations must be safe for concurrent use.
type ActivityPublisher interface {
	Publish(ctx context.Context, projectID uint, event string, payload any) error
}

// NotificationDraft is what collaborators hand to Notify; the dispatcher
// persists it and pushes the stored record.
type NotificationDraft struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	LinkTo  string `json:"link_to,omitempty"`
}

// EventDispatcher fans domain events out to the right rooms and users. All
// deliveries are fire-and-forget with at-most-once semantics: an offline
// member simply receives nothing, and nothing is queued or retried. The one
// ordering rule is that persistence, where the dispatcher owns it, completes
// before the corresponding push.
type EventDispatcher struct {
	presence      *PresenceRegistry
	rooms         *RoomRouter
	notifications NotificationStore
	activities    ActivityStore
	stream        ActivityPublisher // optional, nil disables the audit stream
	logger        *slog.Logger
}

func NewEventDispatcher(presence *PresenceRegistry, rooms *RoomRouter, notifications NotificationStore, activities ActivityStore, stream ActivityPublisher, logger *slog.Logger) *EventDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventDispatcher{
		presence:      presence,
		rooms:         rooms,
		notifications: notifications,
		activities:    activities,
		stream:        stream,
		logger:        logger,
	}
}

// BroadcastToProject delivers the event to every connection currently in the
// project room. The caller already persisted whatever state change the event
// describes; the dispatcher has no persistence responsibility here.
func (d *EventDispatcher) BroadcastToProject(projectID uint, event string, payload any) {
	for _, client := range d.rooms.Clients(ProjectRoom(projectID)) {
		if err := client.SendEvent(event, payload); err != nil {
			d.logger.Debug("broadcast delivery skipped", "projectID", projectID, "event", event, "connID", client.id)
		}
	}
	d.publishActivity(projectID, event, payload)
}

// SendToUser delivers the event to the user's private room; a no-op when the
// user has no live connection there.
func (d *EventDispatcher) SendToUser(userID uint, event string, payload any) {
	for _, client := range d.rooms.Clients(UserRoom(userID)) {
		if err := client.SendEvent(event, payload); err != nil {
			d.logger.Debug("user delivery skipped", "userID", userID, "event", event, "connID", client.id)
		}
	}
}

// Notify persists the notification first and pushes new_notification only
// with the stored record, so the client never sees a notification lacking a
// durable id. On persistence failure nothing is pushed and the error goes
// back to the caller.
func (d *EventDispatcher) Notify(ctx context.Context, userID uint, draft NotificationDraft) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		Type:    draft.Type,
		Content: draft.Content,
		LinkTo:  draft.LinkTo,
	}
	if err := d.notifications.SaveNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	d.SendToUser(userID, EventNewNotification, n)
	return n, nil
}

// EmitTaskUpdate pushes a task change to the project room. updateType is one
// of created, updated, deleted.
func (d *EventDispatcher) EmitTaskUpdate(projectID uint, updateType string, task any) {
	d.BroadcastToProject(projectID, EventTaskUpdate, TaskUpdatePayload{Type: updateType, Task: task})
}

func (d *EventDispatcher) EmitNewComment(projectID uint, comment any) {
	d.BroadcastToProject(projectID, EventNewComment, comment)
}

// EmitProjectActivity appends an entry to the project's persisted activity
// feed and broadcasts the stored record to the room. Like Notify, the write
// comes first; on failure nothing is broadcast.
func (d *EventDispatcher) EmitProjectActivity(ctx context.Context, projectID, actorID uint, action, detail string) (*models.ActivityLog, error) {
	entry := &models.ActivityLog{
		ProjectID: projectID,
		UserID:    actorID,
		Action:    action,
		Detail:    detail,
	}
	if err := d.activities.SaveActivity(ctx, entry); err != nil {
		d.logger.Warn("activity feed write failed", "projectID", projectID, "action", action, "error", err)
		return nil, fmt.Errorf("persist activity: %w", err)
	}

	d.BroadcastToProject(projectID, EventProjectActivity, entry)
	return entry, nil
}

func (d *EventDispatcher) IsUserOnline(userID uint) bool {
	return d.presence.IsOnline(userID)
}

func (d *EventDispatcher) OnlineCount() int {
	return d.presence.OnlineCount()
}

// OnlineProjectMembers filters the given member ids down to those currently
// online.
func (d *EventDispatcher) OnlineProjectMembers(memberIDs []uint) []uint {
	online := make([]uint, 0, len(memberIDs))
	for _, id := range memberIDs {
		if d.presence.IsOnline(id) {
			online = append(online, id)
		}
	}
	return online
}

// publishActivity forwards the broadcast to the audit stream. Best effort
// with a short deadline; a slow or absent broker must never delay fan-out.
func (d *EventDispatcher) publishActivity(projectID uint, event string, payload any) {
	if d.stream == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := d.stream.Publish(ctx, projectID, event, payload); err != nil {
			d.logger.Warn("activity stream publish failed", "projectID", projectID, "event", event, "error", err)
		}
	}()
}
