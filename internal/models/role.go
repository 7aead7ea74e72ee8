package models

import (
	"time"

	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a named permission mask within one scope instance. The mask only
// carries bits defined in the scope kind's catalog, and its name is unique
// within the scope.
type Role struct {
	ID        uuid.UUID             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ScopeKind permissions.ScopeKind `gorm:"type:varchar(20);not null;index:idx_roles_scope;uniqueIndex:idx_roles_scope_name" json:"scope_kind"`
	ScopeID   uuid.UUID             `gorm:"type:uuid;not null;index:idx_roles_scope;uniqueIndex:idx_roles_scope_name" json:"scope_id"`
	Name      string                `gorm:"type:varchar(255);not null;uniqueIndex:idx_roles_scope_name" json:"name"`
	Mask      uint64                `gorm:"not null;default:0" json:"mask"`

	CreatedAt time.Time  `json:"created_at"`
	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
}

// TableName overrides the table name
func (Role) TableName() string {
	return "roles"
}

// BeforeCreate hook
func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Scope returns the role's owning scope.
func (r *Role) Scope() Scope {
	return Scope{Kind: r.ScopeKind, ID: r.ScopeID}
}

// Membership links a profile to a scope instance. Assigned roles hang off it
// through the membership_roles join table.
type Membership struct {
	ID        uuid.UUID             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProfileID uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_profile_scope" json:"profile_id"`
	ScopeKind permissions.ScopeKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_memberships_profile_scope" json:"scope_kind"`
	ScopeID   uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_profile_scope" json:"scope_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Membership) TableName() string {
	return "memberships"
}

// BeforeCreate hook
func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Scope returns the membership's scope.
func (m *Membership) Scope() Scope {
	return Scope{Kind: m.ScopeKind, ID: m.ScopeID}
}

// MembershipRole assigns one role to one membership.
type MembershipRole struct {
	MembershipID uuid.UUID `gorm:"type:uuid;primaryKey" json:"membership_id"`
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the table name
func (MembershipRole) TableName() string {
	return "membership_roles"
}

// CreateRoleRequest is the role creation payload. Permissions are catalog
// names for the target scope kind.
type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// AddMemberRequest links a profile to a scope.
type AddMemberRequest struct {
	ProfileID uuid.UUID `json:"profile_id"`
}

// AssignRoleRequest assigns a role to a membership.
type AssignRoleRequest struct {
	RoleID uuid.UUID `json:"role_id"`
}
