package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/cache"
	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/permissions"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoleStore is the role persistence the resolver needs.
type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	ListByScope(ctx context.Context, scope models.Scope) ([]models.Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AssignmentMembershipIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
}

// MembershipStore is the membership persistence the resolver needs.
type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	GetByProfileAndScope(ctx context.Context, profileID uuid.UUID, scope models.Scope) (*models.Membership, error)
	AssignRole(ctx context.Context, membershipID, roleID uuid.UUID) error
	UnassignRole(ctx context.Context, membershipID, roleID uuid.UUID) error
	RoleMasks(ctx context.Context, membershipID uuid.UUID) ([]uint64, error)
}

// ScopeGraph resolves parent links for hierarchical location authorization.
type ScopeGraph interface {
	GetAuthority(ctx context.Context, id uuid.UUID) (*models.Authority, error)
}

// AuditStore records administrative actions.
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Resolver manages role definitions and profile-to-scope memberships and
// computes effective capability masks. Masks are cached per membership and
// invalidated synchronously whenever an assignment changes.
type Resolver struct {
	roles       RoleStore
	memberships MembershipStore
	scopes      ScopeGraph
	masks       cache.MaskCache
	maskTTL     time.Duration
	audit       AuditStore
}

// NewResolver creates a resolver. audit may be nil to disable audit writes.
func NewResolver(
	roles RoleStore,
	memberships MembershipStore,
	scopes ScopeGraph,
	masks cache.MaskCache,
	maskTTL time.Duration,
	audit AuditStore,
) *Resolver {
	return &Resolver{
		roles:       roles,
		memberships: memberships,
		scopes:      scopes,
		masks:       masks,
		maskTTL:     maskTTL,
		audit:       audit,
	}
}

// CreateRole defines a role in a scope. The actor needs manage_members (or
// administrator) in that scope. Duplicate names within the scope conflict;
// permission names outside the scope kind's catalog are invalid.
func (r *Resolver) CreateRole(ctx context.Context, actor models.Profile, scope models.Scope, name string, permissionNames []string) (*models.Role, error) {
	if err := r.Require(ctx, actor, scope, "manage_members"); err != nil {
		return nil, err
	}

	mask, err := permissions.Encode(scope.Kind, permissionNames)
	if err != nil {
		return nil, err
	}

	role := &models.Role{
		ScopeKind: scope.Kind,
		ScopeID:   scope.ID,
		Name:      name,
		Mask:      mask,
		CreatedBy: &actor.ID,
	}
	if err := r.roles.Create(ctx, role); err != nil {
		return nil, err
	}

	r.writeAudit(ctx, actor, models.AuditRoleCreated, "role", role.ID.String())
	return role, nil
}

// DeleteRole removes a role and every assignment of it in one operation, and
// invalidates the cached masks of all memberships that held it.
func (r *Resolver) DeleteRole(ctx context.Context, actor models.Profile, roleID uuid.UUID) error {
	role, err := r.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := r.Require(ctx, actor, role.Scope(), "manage_members"); err != nil {
		return err
	}

	holders, err := r.roles.AssignmentMembershipIDs(ctx, roleID)
	if err != nil {
		return err
	}

	if err := r.roles.Delete(ctx, roleID); err != nil {
		return err
	}

	for _, membershipID := range holders {
		r.invalidate(ctx, membershipID)
	}

	r.writeAudit(ctx, actor, models.AuditRoleDeleted, "role", roleID.String())
	return nil
}

// ListRoles returns the roles defined in a scope.
func (r *Resolver) ListRoles(ctx context.Context, actor models.Profile, scope models.Scope) ([]models.Role, error) {
	if err := r.Require(ctx, actor, scope, "manage_members"); err != nil {
		return nil, err
	}
	return r.roles.ListByScope(ctx, scope)
}

// AddMember links a profile to a scope, creating its membership.
func (r *Resolver) AddMember(ctx context.Context, actor models.Profile, scope models.Scope, profileID uuid.UUID) (*models.Membership, error) {
	if err := r.Require(ctx, actor, scope, "manage_members"); err != nil {
		return nil, err
	}
	m := &models.Membership{
		ProfileID: profileID,
		ScopeKind: scope.Kind,
		ScopeID:   scope.ID,
	}
	if err := r.memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AssignRole assigns a role to a membership. Idempotent. The role must
// belong to the membership's scope.
func (r *Resolver) AssignRole(ctx context.Context, actor models.Profile, membershipID, roleID uuid.UUID) error {
	membership, err := r.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	role, err := r.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Scope() != membership.Scope() {
		return fmt.Errorf("%w: role belongs to %s/%s", apperrors.ErrScopeMismatch, role.ScopeKind, role.ScopeID)
	}
	if err := r.Require(ctx, actor, membership.Scope(), "manage_members"); err != nil {
		return err
	}

	if err := r.memberships.AssignRole(ctx, membershipID, roleID); err != nil {
		return err
	}
	r.invalidate(ctx, membershipID)

	r.writeAudit(ctx, actor, models.AuditRoleAssigned, "membership", membershipID.String())
	return nil
}

// UnassignRole removes a role from a membership. Idempotent.
func (r *Resolver) UnassignRole(ctx context.Context, actor models.Profile, membershipID, roleID uuid.UUID) error {
	membership, err := r.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if err := r.Require(ctx, actor, membership.Scope(), "manage_members"); err != nil {
		return err
	}

	if err := r.memberships.UnassignRole(ctx, membershipID, roleID); err != nil {
		return err
	}
	r.invalidate(ctx, membershipID)

	r.writeAudit(ctx, actor, models.AuditRoleUnassigned, "membership", membershipID.String())
	return nil
}

// EffectiveMask returns the bitwise OR of all role masks currently assigned
// to the membership; 0 when no roles are assigned.
func (r *Resolver) EffectiveMask(ctx context.Context, membershipID uuid.UUID) (uint64, error) {
	if r.masks != nil {
		if mask, err := r.masks.Get(ctx, membershipID); err == nil {
			return mask, nil
		}
	}

	roleMasks, err := r.memberships.RoleMasks(ctx, membershipID)
	if err != nil {
		return 0, err
	}
	var mask uint64
	for _, m := range roleMasks {
		mask |= m
	}

	if r.masks != nil {
		if err := r.masks.Set(ctx, membershipID, mask, r.maskTTL); err != nil {
			log.Warn().Err(err).Str("membership_id", membershipID.String()).Msg("Failed to cache effective mask")
		}
	}
	return mask, nil
}

// Authorize decides whether a profile may exercise a capability in a scope.
// Admins are always allowed. A missing membership is a plain Deny, not an
// error. Non-admin members are allowed when their effective mask carries the
// flag or the scope's administrator bit.
func (r *Resolver) Authorize(ctx context.Context, profile models.Profile, scope models.Scope, flag string) (bool, error) {
	if profile.IsAdmin {
		return true, nil
	}

	membership, err := r.memberships.GetByProfileAndScope(ctx, profile.ID, scope)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	mask, err := r.EffectiveMask(ctx, membership.ID)
	if err != nil {
		return false, err
	}

	if ok, err := permissions.Has(scope.Kind, mask, flag); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	// The administrator bit of a scope kind grants every capability of that
	// scope.
	return permissions.Has(scope.Kind, mask, "administrator")
}

// AuthorizeLocation extends Authorize up the scope hierarchy: a parent
// authority or institution administrator may act on the location even
// without a location membership.
func (r *Resolver) AuthorizeLocation(ctx context.Context, profile models.Profile, loc *models.Location, flag string) (bool, error) {
	allowed, err := r.Authorize(ctx, profile, loc.Scope(), flag)
	if err != nil || allowed {
		return allowed, err
	}

	if loc.AuthorityID == nil {
		return false, nil
	}
	authority, err := r.scopes.GetAuthority(ctx, *loc.AuthorityID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	allowed, err = r.Authorize(ctx, profile, authority.Scope(), "administrator")
	if err != nil || allowed {
		return allowed, err
	}

	if authority.InstitutionID == nil {
		return false, nil
	}
	instScope := models.Scope{Kind: permissions.ScopeInstitution, ID: *authority.InstitutionID}
	return r.Authorize(ctx, profile, instScope, "administrator")
}

// Require is Authorize with a Deny turned into ErrForbidden.
func (r *Resolver) Require(ctx context.Context, profile models.Profile, scope models.Scope, flag string) error {
	allowed, err := r.Authorize(ctx, profile, scope, flag)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s required in %s scope", apperrors.ErrForbidden, flag, scope.Kind)
	}
	return nil
}

// RequireLocation is AuthorizeLocation with a Deny turned into ErrForbidden.
func (r *Resolver) RequireLocation(ctx context.Context, profile models.Profile, loc *models.Location, flag string) error {
	allowed, err := r.AuthorizeLocation(ctx, profile, loc, flag)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s required for location", apperrors.ErrForbidden, flag)
	}
	return nil
}

// invalidate synchronously drops a membership's cached mask. A failed
// invalidation is logged but does not fail the mutation that triggered it;
// the TTL bounds the staleness window.
func (r *Resolver) invalidate(ctx context.Context, membershipID uuid.UUID) {
	if r.masks == nil {
		return
	}
	if err := r.masks.Invalidate(ctx, membershipID); err != nil {
		log.Warn().Err(err).Str("membership_id", membershipID.String()).Msg("Failed to invalidate mask cache")
	}
}

func (r *Resolver) writeAudit(ctx context.Context, actor models.Profile, action, resourceType, resourceID string) {
	if r.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ProfileID:    actor.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       "success",
	}
	if err := r.audit.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
}
