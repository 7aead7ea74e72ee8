package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LocationAdminStore is the persistence the location service writes through.
type LocationAdminStore interface {
	Create(ctx context.Context, loc *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	List(ctx context.Context) ([]models.Location, error)
	CreateOpeningTime(ctx context.Context, ot *models.OpeningTime) error
	GetOpeningTime(ctx context.Context, id uuid.UUID) (*models.OpeningTime, error)
	ListOpeningTimes(ctx context.Context, locationID uuid.UUID, day *time.Time) ([]models.OpeningTime, error)
}

// LocationService manages locations and their opening times.
type LocationService struct {
	store    LocationAdminStore
	resolver *Resolver
}

// NewLocationService creates a location service.
func NewLocationService(store LocationAdminStore, resolver *Resolver) *LocationService {
	return &LocationService{store: store, resolver: resolver}
}

// CreateLocation creates a location. Under an authority the actor needs
// add_locations there; a free-standing location is admin-only.
func (s *LocationService) CreateLocation(ctx context.Context, actor models.Profile, req models.CreateLocationRequest) (*models.Location, error) {
	if req.AuthorityID != nil {
		scope := models.Scope{Kind: permissions.ScopeAuthority, ID: *req.AuthorityID}
		if err := s.resolver.Require(ctx, actor, scope, permissions.AuthAddLocations); err != nil {
			return nil, err
		}
	} else if !actor.IsAdmin {
		return nil, fmt.Errorf("%w: only admins may create locations outside an authority", apperrors.ErrForbidden)
	}

	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrInvalidInput)
	}
	if req.SeatCount <= 0 {
		return nil, fmt.Errorf("%w: seat_count must be positive", apperrors.ErrInvalidInput)
	}
	if req.ReservationBlockSize <= 0 {
		return nil, fmt.Errorf("%w: reservation_block_size must be positive", apperrors.ErrInvalidInput)
	}
	if req.MinReservationLength != nil && req.MaxReservationLength != nil &&
		*req.MinReservationLength > *req.MaxReservationLength {
		return nil, fmt.Errorf("%w: min_reservation_length exceeds max_reservation_length", apperrors.ErrInvalidInput)
	}

	loc := &models.Location{
		AuthorityID:          req.AuthorityID,
		Name:                 req.Name,
		Description:          req.Description,
		SeatCount:            req.SeatCount,
		ReservationBlockSize: req.ReservationBlockSize,
		MinReservationLength: req.MinReservationLength,
		MaxReservationLength: req.MaxReservationLength,
		IsReservable:         true,
	}
	if req.IsReservable != nil {
		loc.IsReservable = *req.IsReservable
	}
	if err := s.store.Create(ctx, loc); err != nil {
		return nil, err
	}

	log.Info().Str("location_id", loc.ID.String()).Str("name", loc.Name).Msg("Location created")
	return loc, nil
}

// GetLocation returns a location by id. Reads are public.
func (s *LocationService) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	return s.store.GetByID(ctx, id)
}

// ListLocations returns all locations.
func (s *LocationService) ListLocations(ctx context.Context) ([]models.Location, error) {
	return s.store.List(ctx)
}

// CreateOpeningTime adds a bookable window to a location. Requires
// manage_opening_times on the location.
func (s *LocationService) CreateOpeningTime(ctx context.Context, actor models.Profile, locationID uuid.UUID, req models.CreateOpeningTimeRequest) (*models.OpeningTime, error) {
	loc, err := s.store.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireLocation(ctx, actor, loc, permissions.LocManageOpeningTimes); err != nil {
		return nil, err
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", apperrors.ErrInvalidInput)
	}
	if req.SeatCount != nil && *req.SeatCount <= 0 {
		return nil, fmt.Errorf("%w: seat_count override must be positive", apperrors.ErrInvalidInput)
	}

	ot := &models.OpeningTime{
		LocationID:      loc.ID,
		Day:             req.Day,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		SeatCount:       req.SeatCount,
		ReservableFrom:  req.ReservableFrom,
		ReservableUntil: req.ReservableUntil,
		CreatedBy:       &actor.ID,
	}
	if err := s.store.CreateOpeningTime(ctx, ot); err != nil {
		return nil, err
	}

	log.Info().
		Str("opening_time_id", ot.ID.String()).
		Str("location_id", loc.ID.String()).
		Int("blocks", BlocksInWindow(ot, loc)).
		Msg("Opening time created")
	return ot, nil
}

// ListOpeningTimes returns a location's windows, optionally for one day.
func (s *LocationService) ListOpeningTimes(ctx context.Context, locationID uuid.UUID, day *time.Time) ([]models.OpeningTime, error) {
	if _, err := s.store.GetByID(ctx, locationID); err != nil {
		return nil, err
	}
	return s.store.ListOpeningTimes(ctx, locationID, day)
}
