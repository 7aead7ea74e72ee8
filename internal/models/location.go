package models

import (
	"time"

	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a reservable physical space owned by an optional authority.
type Location struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AuthorityID *uuid.UUID `gorm:"type:uuid;index" json:"authority_id,omitempty"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description,omitempty"`

	// Capacity and booking policy.
	SeatCount            int  `gorm:"not null" json:"seat_count"`
	ReservationBlockSize int  `gorm:"not null;default:30" json:"reservation_block_size"` // minutes per block
	MinReservationLength *int `json:"min_reservation_length,omitempty"`                  // blocks
	MaxReservationLength *int `json:"max_reservation_length,omitempty"`                  // blocks
	IsReservable         bool `gorm:"default:true" json:"is_reservable"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Location) TableName() string {
	return "locations"
}

// BeforeCreate hook
func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Scope returns the location's scope identity.
func (l *Location) Scope() Scope {
	return Scope{Kind: permissions.ScopeLocation, ID: l.ID}
}

// OpeningTime is one bookable window of a location on a specific day,
// partitioned into fixed-size blocks by the location's block size.
type OpeningTime struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index" json:"location_id"`

	Day       time.Time `gorm:"type:date;not null;index" json:"day"`
	StartTime time.Time `gorm:"not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	// Overrides the location's seat count when set.
	SeatCount *int `json:"seat_count,omitempty"`

	// Bounds on when bookings may be made, not on the window itself.
	ReservableFrom  *time.Time `json:"reservable_from,omitempty"`
	ReservableUntil *time.Time `json:"reservable_until,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	CreatedBy *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
	UpdatedBy *uuid.UUID     `gorm:"type:uuid" json:"updated_by,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (OpeningTime) TableName() string {
	return "opening_times"
}

// BeforeCreate hook
func (o *OpeningTime) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// EffectiveCapacity returns the window's seat count, falling back to the
// owning location's when no override is set.
func (o *OpeningTime) EffectiveCapacity(loc *Location) int {
	if o.SeatCount != nil {
		return *o.SeatCount
	}
	return loc.SeatCount
}

// CreateLocationRequest is the location creation payload.
type CreateLocationRequest struct {
	AuthorityID          *uuid.UUID `json:"authority_id,omitempty"`
	Name                 string     `json:"name"`
	Description          string     `json:"description,omitempty"`
	SeatCount            int        `json:"seat_count"`
	ReservationBlockSize int        `json:"reservation_block_size"`
	MinReservationLength *int       `json:"min_reservation_length,omitempty"`
	MaxReservationLength *int       `json:"max_reservation_length,omitempty"`
	IsReservable         *bool      `json:"is_reservable,omitempty"`
}

// CreateOpeningTimeRequest is the opening-time creation payload.
type CreateOpeningTimeRequest struct {
	Day             time.Time  `json:"day"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	SeatCount       *int       `json:"seat_count,omitempty"`
	ReservableFrom  *time.Time `json:"reservable_from,omitempty"`
	ReservableUntil *time.Time `json:"reservable_until,omitempty"`
}
