package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/database"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleRepository handles role database operations
type RoleRepository struct{}

// NewRoleRepository creates a new role repository
func NewRoleRepository() *RoleRepository {
	return &RoleRepository{}
}

// Create inserts a role. A name collision within the scope is a conflict.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	var count int64
	if err := database.DB.WithContext(ctx).
		Model(&models.Role{}).
		Where("scope_kind = ? AND scope_id = ? AND name = ?", role.ScopeKind, role.ScopeID, role.Name).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: role %q already exists in scope", apperrors.ErrConflict, role.Name)
	}

	if err := database.DB.WithContext(ctx).Create(role).Error; err != nil {
		// The unique index still races with concurrent creates.
		if errors.Is(translate(err), apperrors.ErrConflict) {
			return fmt.Errorf("%w: role %q already exists in scope", apperrors.ErrConflict, role.Name)
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to get role: %w", translate(err))
	}
	return &role, nil
}

// ListByScope retrieves all roles defined in a scope
func (r *RoleRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.Role, error) {
	var roles []models.Role
	if err := database.DB.WithContext(ctx).
		Where("scope_kind = ? AND scope_id = ?", scope.Kind, scope.ID).
		Order("created_at ASC").
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// Delete removes a role together with all of its assignments, so no
// membership is left pointing at a dangling role.
func (r *RoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.MembershipRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete role assignments: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Role{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete role: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	return err
}

// AssignmentMembershipIDs returns the memberships currently holding the role,
// used to invalidate their cached masks when the role is deleted.
func (r *RoleRepository) AssignmentMembershipIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := database.DB.WithContext(ctx).
		Model(&models.MembershipRole{}).
		Where("role_id = ?", roleID).
		Pluck("membership_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list role assignments: %w", err)
	}
	return ids, nil
}
