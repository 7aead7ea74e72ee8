package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the gorm repositories, implementing
// the store interfaces the services consume.
type fakeStore struct {
	mu sync.Mutex

	locations    map[uuid.UUID]*models.Location
	openingTimes map[uuid.UUID]*models.OpeningTime
	authorities  map[uuid.UUID]*models.Authority
	reservations []*models.Reservation

	roles       map[uuid.UUID]*models.Role
	memberships map[uuid.UUID]*models.Membership
	assignments map[uuid.UUID]map[uuid.UUID]bool // membership -> role set

	auditEntries []*models.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		locations:    make(map[uuid.UUID]*models.Location),
		openingTimes: make(map[uuid.UUID]*models.OpeningTime),
		authorities:  make(map[uuid.UUID]*models.Authority),
		roles:        make(map[uuid.UUID]*models.Role),
		memberships:  make(map[uuid.UUID]*models.Membership),
		assignments:  make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

// --- AdmissionStore ---

func (f *fakeStore) AdmitReservation(ctx context.Context, openingTimeID uuid.UUID, admit func(spans []models.ReservationSpan) error, res *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var spans []models.ReservationSpan
	for _, r := range f.reservations {
		if r.OpeningTimeID == openingTimeID && r.State.Active() {
			spans = append(spans, models.ReservationSpan{
				ProfileID:      r.ProfileID,
				State:          r.State,
				BaseBlockIndex: r.BaseBlockIndex,
				BlockCount:     r.BlockCount,
			})
		}
	}

	if err := admit(spans); err != nil {
		return err
	}

	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	stored := *res
	f.reservations = append(f.reservations, &stored)
	return nil
}

// --- ReservationStore ---

func (f *fakeStore) GetReservation(id uuid.UUID) *models.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.ID == id {
			copy := *r
			return &copy
		}
	}
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	if r := f.GetReservation(id); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("reservation: %w", apperrors.ErrNotFound)
}

func (f *fakeStore) UpdateState(ctx context.Context, id uuid.UUID, state models.ReservationState, confirmedBy *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.ID == id {
			r.State = state
			if confirmedBy != nil {
				now := time.Now().UTC()
				r.ConfirmedBy = confirmedBy
				r.ConfirmedAt = &now
			}
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeStore) ListByOpeningTime(ctx context.Context, openingTimeID uuid.UUID) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if r.OpeningTimeID == openingTimeID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByLocation(ctx context.Context, locationID uuid.UUID, day *time.Time) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		ot, ok := f.openingTimes[r.OpeningTimeID]
		if !ok || ot.LocationID != locationID {
			continue
		}
		if day != nil && !ot.Day.Equal(*day) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// activeCountAt counts live active reservations covering a block.
func (f *fakeStore) activeCountAt(openingTimeID uuid.UUID, block int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reservations {
		if r.OpeningTimeID == openingTimeID && r.State.Active() && r.Covers(block) {
			n++
		}
	}
	return n
}

// --- LocationStore / ScopeGraph ---

func (f *fakeStore) addLocation(loc *models.Location) *models.Location {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	f.locations[loc.ID] = loc
	return loc
}

func (f *fakeStore) addOpeningTime(ot *models.OpeningTime) *models.OpeningTime {
	if ot.ID == uuid.Nil {
		ot.ID = uuid.New()
	}
	f.openingTimes[ot.ID] = ot
	return ot
}

func (f *fakeStore) GetByIDLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	if loc, ok := f.locations[id]; ok {
		return loc, nil
	}
	return nil, fmt.Errorf("location: %w", apperrors.ErrNotFound)
}

func (f *fakeStore) GetOpeningTime(ctx context.Context, id uuid.UUID) (*models.OpeningTime, error) {
	if ot, ok := f.openingTimes[id]; ok {
		return ot, nil
	}
	return nil, fmt.Errorf("opening time: %w", apperrors.ErrNotFound)
}

func (f *fakeStore) GetAuthority(ctx context.Context, id uuid.UUID) (*models.Authority, error) {
	if a, ok := f.authorities[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("authority: %w", apperrors.ErrNotFound)
}

// fakeLocations adapts fakeStore to the LocationStore interface (GetByID is
// taken by ReservationStore on the same struct).
type fakeLocations struct{ *fakeStore }

func (f fakeLocations) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	return f.GetByIDLocation(ctx, id)
}

// --- RoleStore ---

type fakeRoles struct{ *fakeStore }

func (f fakeRoles) Create(ctx context.Context, role *models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.ScopeKind == role.ScopeKind && r.ScopeID == role.ScopeID && r.Name == role.Name {
			return fmt.Errorf("role %q: %w", role.Name, apperrors.ErrConflict)
		}
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	f.roles[role.ID] = role
	return nil
}

func (f fakeRoles) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("role: %w", apperrors.ErrNotFound)
}

func (f fakeRoles) ListByScope(ctx context.Context, scope models.Scope) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Role
	for _, r := range f.roles {
		if r.Scope() == scope {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f fakeRoles) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.roles, id)
	for _, roles := range f.assignments {
		delete(roles, id)
	}
	return nil
}

func (f fakeRoles) AssignmentMembershipIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for membershipID, roles := range f.assignments {
		if roles[roleID] {
			out = append(out, membershipID)
		}
	}
	return out, nil
}

// --- MembershipStore ---

type fakeMemberships struct{ *fakeStore }

func (f fakeMemberships) Create(ctx context.Context, m *models.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.memberships {
		if existing.ProfileID == m.ProfileID && existing.Scope() == m.Scope() {
			*m = *existing
			return nil
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.memberships[m.ID] = m
	return nil
}

func (f fakeMemberships) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.memberships[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("membership: %w", apperrors.ErrNotFound)
}

func (f fakeMemberships) GetByProfileAndScope(ctx context.Context, profileID uuid.UUID, scope models.Scope) (*models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memberships {
		if m.ProfileID == profileID && m.Scope() == scope {
			return m, nil
		}
	}
	return nil, fmt.Errorf("membership: %w", apperrors.ErrNotFound)
}

func (f fakeMemberships) AssignRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignments[membershipID] == nil {
		f.assignments[membershipID] = make(map[uuid.UUID]bool)
	}
	f.assignments[membershipID][roleID] = true
	return nil
}

func (f fakeMemberships) UnassignRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments[membershipID], roleID)
	return nil
}

func (f fakeMemberships) RoleMasks(ctx context.Context, membershipID uuid.UUID) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var masks []uint64
	for roleID := range f.assignments[membershipID] {
		if role, ok := f.roles[roleID]; ok {
			masks = append(masks, role.Mask)
		}
	}
	return masks, nil
}

// --- AuditStore ---

func (f *fakeStore) Create(ctx context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditEntries = append(f.auditEntries, entry)
	return nil
}
