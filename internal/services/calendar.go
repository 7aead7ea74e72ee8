package services

import (
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/models"
)

// blockSize returns the location's block duration.
func blockSize(loc *models.Location) time.Duration {
	return time.Duration(loc.ReservationBlockSize) * time.Minute
}

// ToBlockRange converts a wall-clock range within an opening time into a
// (base index, block count) pair. The range must lie inside the window, start
// on a block boundary and span a whole number of blocks.
func ToBlockRange(ot *models.OpeningTime, loc *models.Location, start, end time.Time) (int, int, error) {
	if start.Before(ot.StartTime) || end.After(ot.EndTime) {
		return 0, 0, fmt.Errorf("%w: window is [%s, %s)",
			apperrors.ErrOutOfWindow,
			ot.StartTime.Format(time.RFC3339), ot.EndTime.Format(time.RFC3339))
	}

	size := blockSize(loc)
	offset := start.Sub(ot.StartTime)
	span := end.Sub(start)

	if span <= 0 || offset%size != 0 || span%size != 0 {
		return 0, 0, fmt.Errorf("%w: block size is %d minutes",
			apperrors.ErrMisaligned, loc.ReservationBlockSize)
	}

	return int(offset / size), int(span / size), nil
}

// BlockToTime is the inverse of ToBlockRange: it renders a block range as the
// wall-clock interval it occupies.
func BlockToTime(ot *models.OpeningTime, loc *models.Location, base, count int) (time.Time, time.Time) {
	size := blockSize(loc)
	start := ot.StartTime.Add(time.Duration(base) * size)
	end := start.Add(time.Duration(count) * size)
	return start, end
}

// BlocksInWindow returns how many whole blocks the opening time holds.
func BlocksInWindow(ot *models.OpeningTime, loc *models.Location) int {
	return int(ot.EndTime.Sub(ot.StartTime) / blockSize(loc))
}

// IsBookableNow reports whether bookings may currently be made against the
// opening time. Unset bounds do not constrain.
func IsBookableNow(ot *models.OpeningTime, now time.Time) bool {
	if ot.ReservableFrom != nil && now.Before(*ot.ReservableFrom) {
		return false
	}
	if ot.ReservableUntil != nil && now.After(*ot.ReservableUntil) {
		return false
	}
	return true
}
