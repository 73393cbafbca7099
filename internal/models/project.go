package models

import (
	"time"

	"gorm.io/gorm"
)

// Project member roles
const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"
)

/** --------------------ENTITIES-------------------- */
// Project groups tasks, comments and members under one workspace
type Project struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	CreatorID   uint   `gorm:"index" json:"creator_id"`

	Members []*User `gorm:"many2many:project_members" json:"-"`
	Tasks   []Task  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ProjectMember is the membership row joining users to projects.
// Queried directly by the realtime layer for room authorization.
type ProjectMember struct {
	ProjectID uint      `gorm:"primaryKey" json:"project_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Role      string    `gorm:"not null;default:Member" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityLog is one entry of a project's persisted activity feed. The same
// record is broadcast live as project_activity, so the feed replays exactly
// what the room heard.
type ActivityLog struct {
	gorm.Model
	ProjectID uint   `gorm:"index;not null" json:"project_id"`
	UserID    uint   `gorm:"index" json:"user_id"`
	Action    string `gorm:"not null" json:"action"`
	Detail    string `json:"detail,omitempty"`
}

/** -------------------- DTOs -------------------- */
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=Admin Member"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=Admin Member"`
}

// ActivityResponse is one feed row with the actor's display fields joined in.
type ActivityResponse struct {
	ID        uint      `json:"id"`
	ProjectID uint      `json:"project_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ProjectMemberResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Online   bool   `json:"online"`
}

type ProjectResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   uint      `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Project) ToResponse() ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatorID:   p.CreatorID,
		CreatedAt:   p.CreatedAt,
	}
}
