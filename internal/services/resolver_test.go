package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/cache"
	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
)

func newTestResolver(store *fakeStore) *Resolver {
	return NewResolver(
		fakeRoles{store},
		fakeMemberships{store},
		store,
		cache.NewMemoryCache(),
		time.Minute,
		store,
	)
}

var admin = models.Profile{ID: uuid.New(), IsAdmin: true}

func locationScope() models.Scope {
	return models.Scope{Kind: permissions.ScopeLocation, ID: uuid.New()}
}

func TestCreateRoleConflict(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()
	scope := locationScope()

	if _, err := r.CreateRole(ctx, admin, scope, "staff", []string{permissions.LocManageTags}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateRole(ctx, admin, scope, "staff", []string{permissions.LocManageImages}); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The same name in a different scope is fine.
	if _, err := r.CreateRole(ctx, admin, locationScope(), "staff", nil); err != nil {
		t.Fatalf("same name in another scope rejected: %v", err)
	}
}

func TestCreateRoleInvalidPermission(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	// manage_opening_times is a location capability, not an institution one.
	scope := models.Scope{Kind: permissions.ScopeInstitution, ID: uuid.New()}
	_, err := r.CreateRole(context.Background(), admin, scope, "janitor", []string{permissions.LocManageOpeningTimes})
	if !errors.Is(err, apperrors.ErrInvalidPermission) {
		t.Fatalf("expected ErrInvalidPermission, got %v", err)
	}
}

func TestEffectiveMaskIsUnionOfRoles(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()
	scope := locationScope()

	tags, err := r.CreateRole(ctx, admin, scope, "tagger", []string{permissions.LocManageTags})
	if err != nil {
		t.Fatal(err)
	}
	times, err := r.CreateRole(ctx, admin, scope, "scheduler", []string{permissions.LocManageOpeningTimes})
	if err != nil {
		t.Fatal(err)
	}

	member, err := r.AddMember(ctx, admin, scope, uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	mask, err := r.EffectiveMask(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if mask != 0 {
		t.Fatalf("mask with no roles = %d, want 0", mask)
	}

	if err := r.AssignRole(ctx, admin, member.ID, tags.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.AssignRole(ctx, admin, member.ID, times.ID); err != nil {
		t.Fatal(err)
	}

	mask, err = r.EffectiveMask(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := tags.Mask | times.Mask; mask != want {
		t.Fatalf("mask = %b, want %b", mask, want)
	}

	// Unassigning invalidates the cache synchronously, so the next check
	// sees the reduced mask immediately.
	if err := r.UnassignRole(ctx, admin, member.ID, times.ID); err != nil {
		t.Fatal(err)
	}
	mask, err = r.EffectiveMask(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if mask != tags.Mask {
		t.Fatalf("mask after unassign = %b, want %b", mask, tags.Mask)
	}
}

func TestAssignRoleIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()
	scope := locationScope()

	role, err := r.CreateRole(ctx, admin, scope, "staff", []string{permissions.LocManageTags})
	if err != nil {
		t.Fatal(err)
	}
	member, err := r.AddMember(ctx, admin, scope, uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := r.AssignRole(ctx, admin, member.ID, role.ID); err != nil {
			t.Fatalf("assign #%d: %v", i, err)
		}
	}
	mask, err := r.EffectiveMask(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if mask != role.Mask {
		t.Fatalf("mask = %b, want %b", mask, role.Mask)
	}

	// Unassigning twice is also a no-op the second time.
	if err := r.UnassignRole(ctx, admin, member.ID, role.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.UnassignRole(ctx, admin, member.ID, role.ID); err != nil {
		t.Fatal(err)
	}
}

func TestAssignRoleScopeMismatch(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()

	role, err := r.CreateRole(ctx, admin, locationScope(), "staff", nil)
	if err != nil {
		t.Fatal(err)
	}
	member, err := r.AddMember(ctx, admin, locationScope(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	if err := r.AssignRole(ctx, admin, member.ID, role.ID); !errors.Is(err, apperrors.ErrScopeMismatch) {
		t.Fatalf("expected ErrScopeMismatch, got %v", err)
	}
}

func TestDeleteRoleRemovesAssignments(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()
	scope := locationScope()

	role, err := r.CreateRole(ctx, admin, scope, "staff", []string{permissions.LocManageTags})
	if err != nil {
		t.Fatal(err)
	}
	member, err := r.AddMember(ctx, admin, scope, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AssignRole(ctx, admin, member.ID, role.ID); err != nil {
		t.Fatal(err)
	}

	if err := r.DeleteRole(ctx, admin, role.ID); err != nil {
		t.Fatal(err)
	}

	mask, err := r.EffectiveMask(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if mask != 0 {
		t.Fatalf("mask after role delete = %b, want 0", mask)
	}
}

func TestAuthorize(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()
	scope := locationScope()

	role, err := r.CreateRole(ctx, admin, scope, "curator", []string{permissions.LocManageLocations, permissions.LocManageTags})
	if err != nil {
		t.Fatal(err)
	}
	profileID := uuid.New()
	member, err := r.AddMember(ctx, admin, scope, profileID)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AssignRole(ctx, admin, member.ID, role.ID); err != nil {
		t.Fatal(err)
	}
	profile := models.Profile{ID: profileID}

	// Granted flag allows, ungranted denies.
	if ok, err := r.Authorize(ctx, profile, scope, permissions.LocManageTags); err != nil || !ok {
		t.Fatalf("manage_tags: ok=%v err=%v, want allow", ok, err)
	}
	if ok, err := r.Authorize(ctx, profile, scope, permissions.LocManageOpeningTimes); err != nil || ok {
		t.Fatalf("manage_opening_times: ok=%v err=%v, want deny", ok, err)
	}

	// No membership is a plain deny, not an error.
	if ok, err := r.Authorize(ctx, models.Profile{ID: uuid.New()}, scope, permissions.LocManageTags); err != nil || ok {
		t.Fatalf("stranger: ok=%v err=%v, want deny", ok, err)
	}

	// Admins are allowed regardless of membership state.
	if ok, err := r.Authorize(ctx, admin, scope, permissions.LocManageOpeningTimes); err != nil || !ok {
		t.Fatalf("admin: ok=%v err=%v, want allow", ok, err)
	}
}

func TestAuthorizeAdministratorBit(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()
	scope := locationScope()

	role, err := r.CreateRole(ctx, admin, scope, "boss", []string{permissions.LocAdministrator})
	if err != nil {
		t.Fatal(err)
	}
	profileID := uuid.New()
	member, err := r.AddMember(ctx, admin, scope, profileID)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AssignRole(ctx, admin, member.ID, role.ID); err != nil {
		t.Fatal(err)
	}

	// The administrator bit grants every capability of the scope kind.
	ok, err := r.Authorize(ctx, models.Profile{ID: profileID}, scope, permissions.LocManageOpeningTimes)
	if err != nil || !ok {
		t.Fatalf("administrator bit: ok=%v err=%v, want allow", ok, err)
	}
}

func TestAuthorizeLocationHierarchy(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)
	ctx := context.Background()

	instID := uuid.New()
	authority := &models.Authority{ID: uuid.New(), InstitutionID: &instID}
	store.authorities[authority.ID] = authority
	loc := &models.Location{ID: uuid.New(), AuthorityID: &authority.ID}

	// An institution administrator reaches the location through the chain.
	instScope := models.Scope{Kind: permissions.ScopeInstitution, ID: instID}
	role, err := r.CreateRole(ctx, admin, instScope, "rector", []string{permissions.InstAdministrator})
	if err != nil {
		t.Fatal(err)
	}
	profileID := uuid.New()
	member, err := r.AddMember(ctx, admin, instScope, profileID)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AssignRole(ctx, admin, member.ID, role.ID); err != nil {
		t.Fatal(err)
	}

	ok, err := r.AuthorizeLocation(ctx, models.Profile{ID: profileID}, loc, permissions.LocManageOpeningTimes)
	if err != nil || !ok {
		t.Fatalf("institution admin via hierarchy: ok=%v err=%v, want allow", ok, err)
	}

	// A profile with no membership anywhere is still denied.
	ok, err = r.AuthorizeLocation(ctx, models.Profile{ID: uuid.New()}, loc, permissions.LocManageOpeningTimes)
	if err != nil || ok {
		t.Fatalf("stranger via hierarchy: ok=%v err=%v, want deny", ok, err)
	}
}
