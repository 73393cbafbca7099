package postgres

import (
	"context"
	"errors"
	"fmt"

	"collab-service/internal/models"

	"gorm.io/gorm"
)

// MembershipRepository is the membership directory for both the REST layer
// and the realtime room router (realtime.MembershipDirectory). Room
// authorization always reads through here, never through a cache.
type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ProjectIDs returns every project the user belongs to.
func (r *MembershipRepository) ProjectIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project memberships: %w", err)
	}
	return ids, nil
}

func (r *MembershipRepository) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

func (r *MembershipRepository) Role(ctx context.Context, projectID, userID uint) (string, error) {
	var member models.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return member.Role, nil
}

func (r *MembershipRepository) Add(ctx context.Context, member *models.ProjectMember) error {
	if member.Role == "" {
		member.Role = models.RoleMember
	}
	return r.db.WithContext(ctx).Create(member).Error
}

// UpdateRole changes an existing member's role; gorm.ErrRecordNotFound when
// no such membership exists.
func (r *MembershipRepository) UpdateRole(ctx context.Context, projectID, userID uint, role string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MembershipRepository) Remove(ctx context.Context, projectID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

// MemberIDs returns the user ids of all project members.
func (r *MembershipRepository) MemberIDs(ctx context.Context, projectID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// List returns members with their display fields for the members panel.
func (r *MembershipRepository) List(ctx context.Context, projectID uint) ([]models.ProjectMemberResponse, error) {
	var members []models.ProjectMemberResponse
	err := r.db.WithContext(ctx).
		Table("project_members").
		Select("project_members.user_id, users.username, users.full_name, project_members.role").
		Joins("JOIN users ON users.id = project_members.user_id").
		Where("project_members.project_id = ?", projectID).
		Order("users.username").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}
