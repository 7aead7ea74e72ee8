package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/metrics"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
)

// AdmissionStore executes the capacity check and reservation insert as one
// indivisible unit against the backing store. Implementations must serialize
// concurrent calls touching the same opening time (the gorm implementation
// locks the opening-time row FOR UPDATE).
type AdmissionStore interface {
	AdmitReservation(ctx context.Context, openingTimeID uuid.UUID, admit func(spans []models.ReservationSpan) error, res *models.Reservation) error
}

// Ledger is the admission-control algorithm guarding the capacity invariant:
// no block of an opening time ever holds more active reservations than its
// effective capacity. Capacity is always recomputed from live reservation
// rows, never tracked in a counter, so cancellations free blocks immediately.
type Ledger struct {
	store   AdmissionStore
	locks   *OpeningLocks
	timeout time.Duration
}

// NewLedger creates a ledger over the given store. timeout bounds how long an
// admission attempt may wait for its serialization point.
func NewLedger(store AdmissionStore, timeout time.Duration) *Ledger {
	return &Ledger{
		store:   store,
		locks:   NewOpeningLocks(),
		timeout: timeout,
	}
}

// TryAdmit admits the reservation if every block it covers still has a free
// seat, and inserts it in the same indivisible step. Fails with
// ErrCapacityExceeded, ErrAlreadyReserved or ErrContention.
func (l *Ledger) TryAdmit(ctx context.Context, ot *models.OpeningTime, loc *models.Location, res *models.Reservation) error {
	release, err := l.locks.Acquire(ctx, ot.ID, l.timeout)
	if err != nil {
		if err == apperrors.ErrContention {
			metrics.RecordRejection(metrics.ReasonContention)
		}
		return err
	}
	defer release()

	capacity := ot.EffectiveCapacity(loc)
	start := time.Now()

	err = l.store.AdmitReservation(ctx, ot.ID, func(spans []models.ReservationSpan) error {
		return CheckAdmission(spans, res.ProfileID, res.BaseBlockIndex, res.BlockCount, capacity)
	}, res)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCapacityExceeded):
			metrics.RecordRejection(metrics.ReasonCapacity)
		case errors.Is(err, apperrors.ErrAlreadyReserved):
			metrics.RecordRejection(metrics.ReasonDuplicate)
		}
		return err
	}

	metrics.RecordAdmission(time.Since(start))
	return nil
}

// CheckAdmission decides whether one more reservation of [base, base+count)
// fits given the live active spans. Duplicate overlapping bookings by the
// same profile are rejected before the capacity scan.
func CheckAdmission(spans []models.ReservationSpan, profileID uuid.UUID, base, count, capacity int) error {
	for _, s := range spans {
		if s.ProfileID == profileID && s.Overlaps(base, count) {
			return fmt.Errorf("%w: blocks [%d, %d)", apperrors.ErrAlreadyReserved, base, base+count)
		}
	}

	for i := base; i < base+count; i++ {
		if ActiveCountAt(spans, i)+1 > capacity {
			return fmt.Errorf("%w: block %d is full", apperrors.ErrCapacityExceeded, i)
		}
	}
	return nil
}

// ActiveCountAt counts the active spans covering a block index.
func ActiveCountAt(spans []models.ReservationSpan, block int) int {
	n := 0
	for _, s := range spans {
		if s.BaseBlockIndex <= block && block < s.BaseBlockIndex+s.BlockCount {
			n++
		}
	}
	return n
}
