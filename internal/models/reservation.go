package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationState is the lifecycle state of a reservation.
type ReservationState string

const (
	// ReservationCreated counts against capacity.
	ReservationCreated ReservationState = "created"
	// ReservationCancelled no longer counts against capacity.
	ReservationCancelled ReservationState = "cancelled"
	// ReservationAbsent is a terminal no-show confirmation.
	ReservationAbsent ReservationState = "absent"
	// ReservationPresent is a terminal attendance confirmation; it still
	// counts against capacity for its blocks.
	ReservationPresent ReservationState = "present"
)

// Active reports whether the state counts against opening-time capacity.
func (s ReservationState) Active() bool {
	return s == ReservationCreated || s == ReservationPresent
}

// Reservation occupies a contiguous run of blocks within one opening time.
type Reservation struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProfileID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"profile_id"`
	OpeningTimeID uuid.UUID        `gorm:"type:uuid;not null;index" json:"opening_time_id"`
	State         ReservationState `gorm:"type:varchar(20);not null;default:'created';index" json:"state"`

	BaseBlockIndex int `gorm:"not null" json:"base_block_index"`
	BlockCount     int `gorm:"not null" json:"block_count"`

	// Attendance confirmation metadata.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy *uuid.UUID `gorm:"type:uuid" json:"confirmed_by,omitempty"`

	// Wall-clock rendering of the block range, derived on read.
	StartTime time.Time `gorm:"-" json:"start_time"`
	EndTime   time.Time `gorm:"-" json:"end_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Reservation) TableName() string {
	return "reservations"
}

// BeforeCreate hook
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Covers reports whether the reservation's block span includes block i.
func (r *Reservation) Covers(i int) bool {
	return r.BaseBlockIndex <= i && i < r.BaseBlockIndex+r.BlockCount
}

// Overlaps reports whether two block spans share at least one block.
func (r *Reservation) Overlaps(base, count int) bool {
	return r.BaseBlockIndex < base+count && base < r.BaseBlockIndex+r.BlockCount
}

// ReservationSpan is the slice of a reservation the admission check needs:
// its block range, holder and state.
type ReservationSpan struct {
	ProfileID      uuid.UUID
	State          ReservationState
	BaseBlockIndex int
	BlockCount     int
}

// Overlaps reports whether the span shares a block with [base, base+count).
func (s ReservationSpan) Overlaps(base, count int) bool {
	return s.BaseBlockIndex < base+count && base < s.BaseBlockIndex+s.BlockCount
}

// CreateReservationRequest is the booking payload.
type CreateReservationRequest struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"` // booking on behalf of someone else
}

// ConfirmReservationRequest records attendance after the window passes.
type ConfirmReservationRequest struct {
	State ReservationState `json:"state"` // present or absent
}
