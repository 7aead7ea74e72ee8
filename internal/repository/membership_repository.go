package repository

import (
	"context"
	"fmt"

	"github.com/Blokmap/backend/internal/database"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// MembershipRepository handles membership database operations
type MembershipRepository struct{}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{}
}

// Create inserts a membership linking a profile to a scope. Creating an
// existing link returns the stored membership unchanged.
func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	if err := database.DB.WithContext(ctx).
		Where("profile_id = ? AND scope_kind = ? AND scope_id = ?", m.ProfileID, m.ScopeKind, m.ScopeID).
		FirstOrCreate(m).Error; err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// GetByID retrieves a membership by ID
func (r *MembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", translate(err))
	}
	return &m, nil
}

// GetByProfileAndScope retrieves the membership for (profile, scope).
// Absence translates to a not-found the resolver treats as Deny.
func (r *MembershipRepository) GetByProfileAndScope(ctx context.Context, profileID uuid.UUID, scope models.Scope) (*models.Membership, error) {
	var m models.Membership
	if err := database.DB.WithContext(ctx).
		Where("profile_id = ? AND scope_kind = ? AND scope_id = ?", profileID, scope.Kind, scope.ID).
		First(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", translate(err))
	}
	return &m, nil
}

// AssignRole links a role to a membership. Idempotent: assigning an already
// assigned role is a no-op.
func (r *MembershipRepository) AssignRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	assignment := models.MembershipRole{MembershipID: membershipID, RoleID: roleID}
	if err := database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignment).Error; err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// UnassignRole removes a role from a membership. Idempotent: removing an
// unassigned role is a no-op.
func (r *MembershipRepository) UnassignRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	if err := database.DB.WithContext(ctx).
		Where("membership_id = ? AND role_id = ?", membershipID, roleID).
		Delete(&models.MembershipRole{}).Error; err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}
	return nil
}

// RoleMasks returns the permission masks of all roles currently assigned to
// a membership.
func (r *MembershipRepository) RoleMasks(ctx context.Context, membershipID uuid.UUID) ([]uint64, error) {
	var masks []uint64
	if err := database.DB.WithContext(ctx).
		Model(&models.MembershipRole{}).
		Joins("JOIN roles ON roles.id = membership_roles.role_id").
		Where("membership_roles.membership_id = ?", membershipID).
		Pluck("roles.mask", &masks).Error; err != nil {
		return nil, fmt.Errorf("failed to get role masks: %w", err)
	}
	return masks, nil
}
