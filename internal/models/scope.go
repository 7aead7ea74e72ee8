package models

import (
	"time"

	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scope identifies one institution, authority or location instance. Roles and
// memberships always belong to exactly one scope.
type Scope struct {
	Kind permissions.ScopeKind `json:"kind"`
	ID   uuid.UUID             `json:"id"`
}

// Institution is the top of the scope hierarchy.
type Institution struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Category  string         `gorm:"type:varchar(50);not null;default:'education'" json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Institution) TableName() string {
	return "institutions"
}

// BeforeCreate hook
func (i *Institution) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Scope returns the institution's scope identity.
func (i *Institution) Scope() Scope {
	return Scope{Kind: permissions.ScopeInstitution, ID: i.ID}
}

// Authority groups locations and optionally belongs to an institution.
type Authority struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	InstitutionID *uuid.UUID     `gorm:"type:uuid;index" json:"institution_id,omitempty"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Authority) TableName() string {
	return "authorities"
}

// BeforeCreate hook
func (a *Authority) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Scope returns the authority's scope identity.
func (a *Authority) Scope() Scope {
	return Scope{Kind: permissions.ScopeAuthority, ID: a.ID}
}
