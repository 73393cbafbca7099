package postgres

import (
	"context"
	"errors"
	"fmt"

	"collab-service/internal/models"

	"gorm.io/gorm"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task, assigneeIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if len(assigneeIDs) > 0 {
			var assignees []models.User
			if err := tx.Find(&assignees, assigneeIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(task).Association("Assignees").Replace(assignees); err != nil {
				return fmt.Errorf("failed to assign task: %w", err)
			}
		}
		return nil
	})
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Preload("Assignees").First(&task, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}

// Assign replaces the assignee set.
func (r *TaskRepository) Assign(ctx context.Context, task *models.Task, userIDs []uint) error {
	var assignees []models.User
	if len(userIDs) > 0 {
		if err := r.db.WithContext(ctx).Find(&assignees, userIDs).Error; err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Model(task).Association("Assignees").Replace(assignees)
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("Assignees").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// ListAssignedTo returns the tasks assigned to the user across all projects.
func (r *TaskRepository) ListAssignedTo(ctx context.Context, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("Assignees").
		Joins("JOIN task_assignees ON task_assignees.task_id = tasks.id").
		Where("task_assignees.user_id = ?", userID).
		Order("tasks.due_date ASC NULLS LAST").
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments returns a task's comments with author display fields, oldest
// first.
func (r *TaskRepository) ListComments(ctx context.Context, taskID uint) ([]models.CommentResponse, error) {
	return r.listComments(ctx, "comments.task_id = ?", taskID)
}

// ListProjectComments returns the project discussion thread (comments attached
// to the project itself, not to a task).
func (r *TaskRepository) ListProjectComments(ctx context.Context, projectID uint) ([]models.CommentResponse, error) {
	return r.listComments(ctx, "comments.project_id = ?", projectID)
}

func (r *TaskRepository) listComments(ctx context.Context, cond string, id uint) ([]models.CommentResponse, error) {
	var comments []models.CommentResponse
	err := r.db.WithContext(ctx).
		Table("comments").
		Select("comments.id, comments.content, comments.user_id, users.username, users.full_name, comments.task_id, comments.project_id, comments.parent_comment_id, comments.created_at").
		Joins("JOIN users ON users.id = comments.user_id").
		Where(cond, id).
		Where("comments.deleted_at IS NULL").
		Order("comments.created_at ASC").
		Scan(&comments).Error
	return comments, err
}
