package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/database"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
)

// LocationRepository handles location and opening-time database operations
type LocationRepository struct{}

// NewLocationRepository creates a new location repository
func NewLocationRepository() *LocationRepository {
	return &LocationRepository{}
}

// Create creates a new location
func (r *LocationRepository) Create(ctx context.Context, loc *models.Location) error {
	if err := database.DB.WithContext(ctx).Create(loc).Error; err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

// GetByID retrieves a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var loc models.Location
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&loc).Error; err != nil {
		return nil, fmt.Errorf("failed to get location: %w", translate(err))
	}
	return &loc, nil
}

// List retrieves all locations
func (r *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	var locs []models.Location
	if err := database.DB.WithContext(ctx).
		Order("created_at ASC").
		Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locs, nil
}

// GetAuthority retrieves an authority by ID
func (r *LocationRepository) GetAuthority(ctx context.Context, id uuid.UUID) (*models.Authority, error) {
	var auth models.Authority
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&auth).Error; err != nil {
		return nil, fmt.Errorf("failed to get authority: %w", translate(err))
	}
	return &auth, nil
}

// CreateOpeningTime creates a bookable window for a location
func (r *LocationRepository) CreateOpeningTime(ctx context.Context, ot *models.OpeningTime) error {
	if err := database.DB.WithContext(ctx).Create(ot).Error; err != nil {
		return fmt.Errorf("failed to create opening time: %w", err)
	}
	return nil
}

// GetOpeningTime retrieves an opening time by ID
func (r *LocationRepository) GetOpeningTime(ctx context.Context, id uuid.UUID) (*models.OpeningTime, error) {
	var ot models.OpeningTime
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&ot).Error; err != nil {
		return nil, fmt.Errorf("failed to get opening time: %w", translate(err))
	}
	return &ot, nil
}

// ListOpeningTimes retrieves a location's opening times, optionally filtered
// to a single day.
func (r *LocationRepository) ListOpeningTimes(ctx context.Context, locationID uuid.UUID, day *time.Time) ([]models.OpeningTime, error) {
	query := database.DB.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("day ASC, start_time ASC")

	if day != nil {
		query = query.Where("day = ?", day.Format("2006-01-02"))
	}

	var times []models.OpeningTime
	if err := query.Find(&times).Error; err != nil {
		return nil, fmt.Errorf("failed to list opening times: %w", err)
	}
	return times, nil
}
