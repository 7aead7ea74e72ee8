package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/database"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activeStates are the reservation states that count against capacity.
var activeStates = []models.ReservationState{models.ReservationCreated, models.ReservationPresent}

// ReservationRepository handles reservation database operations
type ReservationRepository struct{}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{}
}

// AdmitReservation runs the capacity check and the insert as one transaction.
// The opening-time row is locked FOR UPDATE first, so concurrent admissions
// against the same window serialize even across service instances. The admit
// callback sees the live active spans and decides; any error it returns
// aborts the transaction without inserting.
func (r *ReservationRepository) AdmitReservation(
	ctx context.Context,
	openingTimeID uuid.UUID,
	admit func(spans []models.ReservationSpan) error,
	res *models.Reservation,
) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ot models.OpeningTime
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", openingTimeID).
			First(&ot).Error; err != nil {
			return fmt.Errorf("failed to lock opening time: %w", translate(err))
		}

		var spans []models.ReservationSpan
		if err := tx.
			Model(&models.Reservation{}).
			Select("profile_id, state, base_block_index, block_count").
			Where("opening_time_id = ? AND state IN ?", openingTimeID, activeStates).
			Find(&spans).Error; err != nil {
			return fmt.Errorf("failed to load active spans: %w", err)
		}

		if err := admit(spans); err != nil {
			return err
		}

		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a reservation by ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&res).Error; err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", translate(err))
	}
	return &res, nil
}

// UpdateState transitions a reservation's lifecycle state. Confirmation
// metadata is recorded when the transition is an attendance confirmation.
func (r *ReservationRepository) UpdateState(ctx context.Context, id uuid.UUID, state models.ReservationState, confirmedBy *uuid.UUID) error {
	updates := map[string]interface{}{
		"state": state,
	}
	if confirmedBy != nil {
		updates["confirmed_by"] = *confirmedBy
		updates["confirmed_at"] = time.Now().UTC()
	}

	result := database.DB.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update reservation state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update reservation state: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// ListByOpeningTime retrieves all reservations of an opening time, ordered by
// id. Each call re-reads current state.
func (r *ReservationRepository) ListByOpeningTime(ctx context.Context, openingTimeID uuid.UUID) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := database.DB.WithContext(ctx).
		Where("opening_time_id = ?", openingTimeID).
		Order("id ASC").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// ListByLocation retrieves all reservations across a location's opening
// times, optionally restricted to one day, ordered by id.
func (r *ReservationRepository) ListByLocation(ctx context.Context, locationID uuid.UUID, day *time.Time) ([]models.Reservation, error) {
	query := database.DB.WithContext(ctx).
		Joins("JOIN opening_times ON opening_times.id = reservations.opening_time_id").
		Where("opening_times.location_id = ?", locationID)

	if day != nil {
		query = query.Where("opening_times.day = ?", day.Format("2006-01-02"))
	}

	var reservations []models.Reservation
	if err := query.Order("reservations.id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}
