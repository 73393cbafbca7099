package postgres

import (
	"context"
	"fmt"

	"collab-service/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository persists the project activity feed
// (realtime.ActivityStore). The dispatcher appends through here before
// broadcasting.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) SaveActivity(ctx context.Context, entry *models.ActivityLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

// ListByProject returns the feed newest first, with the actor's username
// joined in.
func (r *ActivityRepository) ListByProject(ctx context.Context, projectID uint, limit, offset int) ([]models.ActivityResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.ActivityResponse
	err := r.db.WithContext(ctx).
		Table("activity_logs").
		Select("activity_logs.id, activity_logs.project_id, activity_logs.user_id, users.username, activity_logs.action, activity_logs.detail, activity_logs.created_at").
		Joins("LEFT JOIN users ON users.id = activity_logs.user_id").
		Where("activity_logs.project_id = ? AND activity_logs.deleted_at IS NULL", projectID).
		Order("activity_logs.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&entries).Error
	return entries, err
}
