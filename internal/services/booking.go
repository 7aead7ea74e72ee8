package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/metrics"
	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LocationStore is the location/opening-time persistence the orchestrator
// reads from.
type LocationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	GetOpeningTime(ctx context.Context, id uuid.UUID) (*models.OpeningTime, error)
}

// ReservationStore is the reservation persistence used outside the admission
// path.
type ReservationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	UpdateState(ctx context.Context, id uuid.UUID, state models.ReservationState, confirmedBy *uuid.UUID) error
	ListByOpeningTime(ctx context.Context, openingTimeID uuid.UUID) ([]models.Reservation, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID, day *time.Time) ([]models.Reservation, error)
}

// BookingService composes the resolver, calendar and ledger to create,
// cancel, confirm and list reservations.
type BookingService struct {
	locations    LocationStore
	reservations ReservationStore
	ledger       *Ledger
	resolver     *Resolver
	audit        AuditStore
	now          func() time.Time
}

// NewBookingService creates a booking orchestrator. audit may be nil.
func NewBookingService(
	locations LocationStore,
	reservations ReservationStore,
	ledger *Ledger,
	resolver *Resolver,
	audit AuditStore,
) *BookingService {
	return &BookingService{
		locations:    locations,
		reservations: reservations,
		ledger:       ledger,
		resolver:     resolver,
		audit:        audit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation books a block range of an opening time. Self-service
// bookings are always permitted; booking on behalf of another profile
// requires manage_reservations on the location.
func (s *BookingService) CreateReservation(
	ctx context.Context,
	actor models.Profile,
	locationID, openingTimeID uuid.UUID,
	req models.CreateReservationRequest,
) (*models.Reservation, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	ot, err := s.openingTimeOf(ctx, loc, openingTimeID)
	if err != nil {
		return nil, err
	}

	profileID := actor.ID
	if req.ProfileID != nil && *req.ProfileID != actor.ID {
		if err := s.resolver.RequireLocation(ctx, actor, loc, permissions.LocManageReservations); err != nil {
			return nil, err
		}
		profileID = *req.ProfileID
	}

	if !loc.IsReservable {
		return nil, fmt.Errorf("%w: location %s", apperrors.ErrNotReservable, loc.ID)
	}
	if !IsBookableNow(ot, s.now()) {
		return nil, fmt.Errorf("%w: opening time is not currently bookable", apperrors.ErrOutOfWindow)
	}

	base, count, err := ToBlockRange(ot, loc, req.StartTime, req.EndTime)
	if err != nil {
		metrics.RecordRejection(metrics.ReasonValidation)
		return nil, err
	}
	if err := checkLengthBounds(loc, count); err != nil {
		metrics.RecordRejection(metrics.ReasonValidation)
		return nil, err
	}

	res := &models.Reservation{
		ProfileID:      profileID,
		OpeningTimeID:  ot.ID,
		State:          models.ReservationCreated,
		BaseBlockIndex: base,
		BlockCount:     count,
	}
	if err := s.ledger.TryAdmit(ctx, ot, loc, res); err != nil {
		return nil, err
	}

	res.StartTime, res.EndTime = BlockToTime(ot, loc, base, count)

	s.writeAudit(ctx, actor, models.AuditReservationCreated, res.ID)
	log.Info().
		Str("reservation_id", res.ID.String()).
		Str("opening_time_id", ot.ID.String()).
		Int("base_block", base).
		Int("block_count", count).
		Msg("Reservation created")

	return res, nil
}

// CancelReservation transitions a reservation to cancelled, immediately
// freeing its blocks. Allowed for the owner, or for an actor holding
// manage_reservations on the location.
func (s *BookingService) CancelReservation(ctx context.Context, actor models.Profile, locationID, openingTimeID, reservationID uuid.UUID) error {
	res, loc, err := s.loadReservation(ctx, locationID, openingTimeID, reservationID)
	if err != nil {
		return err
	}

	if res.ProfileID != actor.ID {
		if err := s.resolver.RequireLocation(ctx, actor, loc, permissions.LocManageReservations); err != nil {
			return err
		}
	}

	if res.State != models.ReservationCreated {
		return fmt.Errorf("%w: cannot cancel a %s reservation", apperrors.ErrInvalidReservationState, res.State)
	}

	if err := s.reservations.UpdateState(ctx, res.ID, models.ReservationCancelled, nil); err != nil {
		return err
	}

	metrics.RecordCancellation()
	s.writeAudit(ctx, actor, models.AuditReservationCancelled, res.ID)
	return nil
}

// ConfirmAttendance records presence or absence after the window has
// started. Requires confirm_reservations on the location.
func (s *BookingService) ConfirmAttendance(ctx context.Context, actor models.Profile, locationID, openingTimeID, reservationID uuid.UUID, state models.ReservationState) error {
	if state != models.ReservationPresent && state != models.ReservationAbsent {
		return fmt.Errorf("%w: confirmation state must be present or absent", apperrors.ErrInvalidReservationState)
	}

	res, loc, err := s.loadReservation(ctx, locationID, openingTimeID, reservationID)
	if err != nil {
		return err
	}
	if err := s.resolver.RequireLocation(ctx, actor, loc, permissions.LocConfirmReservations); err != nil {
		return err
	}

	ot, err := s.locations.GetOpeningTime(ctx, res.OpeningTimeID)
	if err != nil {
		return err
	}
	if s.now().Before(ot.StartTime) {
		return fmt.Errorf("%w: window has not started yet", apperrors.ErrInvalidReservationState)
	}
	if res.State != models.ReservationCreated {
		return fmt.Errorf("%w: cannot confirm a %s reservation", apperrors.ErrInvalidReservationState, res.State)
	}

	if err := s.reservations.UpdateState(ctx, res.ID, state, &actor.ID); err != nil {
		return err
	}

	s.writeAudit(ctx, actor, models.AuditReservationConfirmed, res.ID)
	return nil
}

// ListByOpeningTime returns an opening time's reservations ordered by id,
// with wall-clock start/end rendered from their block ranges. Requires
// manage_reservations on the location.
func (s *BookingService) ListByOpeningTime(ctx context.Context, actor models.Profile, locationID, openingTimeID uuid.UUID) ([]models.Reservation, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	ot, err := s.openingTimeOf(ctx, loc, openingTimeID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireLocation(ctx, actor, loc, permissions.LocManageReservations); err != nil {
		return nil, err
	}

	reservations, err := s.reservations.ListByOpeningTime(ctx, ot.ID)
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		reservations[i].StartTime, reservations[i].EndTime = BlockToTime(ot, loc, reservations[i].BaseBlockIndex, reservations[i].BlockCount)
	}
	return reservations, nil
}

// ListByLocation returns a location's reservations across opening times,
// optionally restricted to a single day, ordered by id.
func (s *BookingService) ListByLocation(ctx context.Context, actor models.Profile, locationID uuid.UUID, day *time.Time) ([]models.Reservation, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireLocation(ctx, actor, loc, permissions.LocManageReservations); err != nil {
		return nil, err
	}

	reservations, err := s.reservations.ListByLocation(ctx, loc.ID, day)
	if err != nil {
		return nil, err
	}
	// Rendering start/end needs each reservation's window; fetch each
	// distinct opening time once.
	windows := make(map[uuid.UUID]*models.OpeningTime)
	for i := range reservations {
		ot, ok := windows[reservations[i].OpeningTimeID]
		if !ok {
			ot, err = s.locations.GetOpeningTime(ctx, reservations[i].OpeningTimeID)
			if err != nil {
				return nil, err
			}
			windows[reservations[i].OpeningTimeID] = ot
		}
		reservations[i].StartTime, reservations[i].EndTime = BlockToTime(ot, loc, reservations[i].BaseBlockIndex, reservations[i].BlockCount)
	}
	return reservations, nil
}

// openingTimeOf fetches an opening time and verifies it belongs to loc.
func (s *BookingService) openingTimeOf(ctx context.Context, loc *models.Location, openingTimeID uuid.UUID) (*models.OpeningTime, error) {
	ot, err := s.locations.GetOpeningTime(ctx, openingTimeID)
	if err != nil {
		return nil, err
	}
	if ot.LocationID != loc.ID {
		return nil, fmt.Errorf("%w: opening time does not belong to location", apperrors.ErrNotFound)
	}
	return ot, nil
}

// loadReservation fetches a reservation and its location, verifying the
// nesting of ids in the request path.
func (s *BookingService) loadReservation(ctx context.Context, locationID, openingTimeID, reservationID uuid.UUID) (*models.Reservation, *models.Location, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.openingTimeOf(ctx, loc, openingTimeID); err != nil {
		return nil, nil, err
	}
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}
	if res.OpeningTimeID != openingTimeID {
		return nil, nil, fmt.Errorf("%w: reservation does not belong to opening time", apperrors.ErrNotFound)
	}
	return res, loc, nil
}

func checkLengthBounds(loc *models.Location, count int) error {
	if loc.MinReservationLength != nil && count < *loc.MinReservationLength {
		return fmt.Errorf("%w: minimum is %d blocks", apperrors.ErrReservationTooShort, *loc.MinReservationLength)
	}
	if loc.MaxReservationLength != nil && count > *loc.MaxReservationLength {
		return fmt.Errorf("%w: maximum is %d blocks", apperrors.ErrReservationTooLong, *loc.MaxReservationLength)
	}
	return nil
}

func (s *BookingService) writeAudit(ctx context.Context, actor models.Profile, action string, reservationID uuid.UUID) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ProfileID:    actor.ID,
		Action:       action,
		ResourceType: "reservation",
		ResourceID:   reservationID.String(),
		Status:       "success",
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
}
