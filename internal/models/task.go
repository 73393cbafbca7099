package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses
const (
	TaskStatusPending    = "Pending"
	TaskStatusInProgress = "In Progress"
	TaskStatusDone       = "Done"
)

/** --------------------ENTITIES-------------------- */
type Task struct {
	gorm.Model
	ProjectID   uint       `gorm:"index;not null" json:"project_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Status      string     `gorm:"not null;default:Pending" json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatorID   uint       `gorm:"index" json:"creator_id"`

	Assignees []*User   `gorm:"many2many:task_assignees" json:"assignees,omitempty"`
	Comments  []Comment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Comment belongs to either a task or a project discussion, never both.
type Comment struct {
	gorm.Model
	Content         string `gorm:"not null" json:"content"`
	UserID          uint   `gorm:"index" json:"user_id"`
	TaskID          *uint  `gorm:"index" json:"task_id,omitempty"`
	ProjectID       *uint  `gorm:"index" json:"project_id,omitempty"`
	ParentCommentID *uint  `json:"parent_comment_id,omitempty"`
}

// Attachment metadata; the file body lives in object storage.
type Attachment struct {
	gorm.Model
	FileName   string `gorm:"not null" json:"file_name"`
	FilePath   string `gorm:"not null" json:"file_path"`
	MimeType   string `json:"mime_type"`
	UploaderID uint   `gorm:"index" json:"uploader_id"`
	TaskID     *uint  `gorm:"index" json:"task_id,omitempty"`
	CommentID  *uint  `gorm:"index" json:"comment_id,omitempty"`
}

/** -------------------- DTOs -------------------- */
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"omitempty,oneof=Pending 'In Progress' Done"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssigneeIDs []uint     `json:"assignee_ids,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,max=255"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty" binding:"omitempty,oneof=Pending 'In Progress' Done"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type AssignTaskRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
}

type CreateCommentRequest struct {
	Content         string `json:"content" binding:"required"`
	ParentCommentID *uint  `json:"parent_comment_id,omitempty"`
}

// CommentResponse carries author display fields for the project-room push.
type CommentResponse struct {
	ID              uint      `json:"id"`
	Content         string    `json:"content"`
	UserID          uint      `json:"user_id"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	TaskID          *uint     `json:"task_id,omitempty"`
	ProjectID       *uint     `json:"project_id,omitempty"`
	ParentCommentID *uint     `json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
