package realtime

import (
	"context"

	"collab-service/internal/models"
)

// MembershipDirectory answers project-membership questions. Room placement
// always asks it directly rather than caching results, so membership revoked
// mid-session is enforced on the next join attempt.
type MembershipDirectory interface {
	ProjectIDs(ctx context.Context, userID uint) ([]uint, error)
	IsMember(ctx context.Context, projectID, userID uint) (bool, error)
}

// MessageStore persists direct messages. The id and timestamp are filled in
// by the store on success.
type MessageStore interface {
	SaveDirectMessage(ctx context.Context, msg *models.DirectMessage) error
}

// NotificationStore persists notifications before they are pushed.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
}

// ActivityStore persists project activity entries so the feed endpoint can
// replay what the room heard live.
type ActivityStore interface {
	SaveActivity(ctx context.Context, entry *models.ActivityLog) error
}
