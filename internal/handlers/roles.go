package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/permissions"
	"github.com/Blokmap/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type RolesHandler struct {
	resolver *services.Resolver
}

func NewRolesHandler(resolver *services.Resolver) *RolesHandler {
	return &RolesHandler{
		resolver: resolver,
	}
}

// scopeFrom parses the {scopeKind}/{scopeID} path pair.
func scopeFrom(w http.ResponseWriter, r *http.Request) (models.Scope, bool) {
	kind := permissions.ScopeKind(chi.URLParam(r, "scopeKind"))
	if !kind.Valid() {
		http.Error(w, "Invalid scope kind", http.StatusBadRequest)
		return models.Scope{}, false
	}
	id, ok := uuidParam(w, r, "scopeID")
	if !ok {
		return models.Scope{}, false
	}
	return models.Scope{Kind: kind, ID: id}, true
}

// GetCatalog returns the permission catalog of a scope kind
func (h *RolesHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	kind := permissions.ScopeKind(chi.URLParam(r, "scopeKind"))
	if !kind.Valid() {
		http.Error(w, "Invalid scope kind", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, permissions.Catalog(kind))
}

// CreateRole defines a role in a scope
func (h *RolesHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	role, err := h.resolver.CreateRole(r.Context(), profile, scope, req.Name, req.Permissions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, role)
}

// ListRoles retrieves the roles defined in a scope
func (h *RolesHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	roles, err := h.resolver.ListRoles(r.Context(), profile, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, roles)
}

// DeleteRole removes a role and all its assignments
func (h *RolesHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	roleID, ok := uuidParam(w, r, "roleID")
	if !ok {
		return
	}

	if err := h.resolver.DeleteRole(r.Context(), profile, roleID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember links a profile to a scope
func (h *RolesHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	var req models.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	membership, err := h.resolver.AddMember(r.Context(), profile, scope, req.ProfileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, membership)
}

// AssignRole assigns a role to a membership
func (h *RolesHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	membershipID, ok := uuidParam(w, r, "membershipID")
	if !ok {
		return
	}

	var req models.AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.resolver.AssignRole(r.Context(), profile, membershipID, req.RoleID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnassignRole removes a role from a membership
func (h *RolesHandler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	membershipID, ok := uuidParam(w, r, "membershipID")
	if !ok {
		return
	}
	roleID, ok := uuidParam(w, r, "roleID")
	if !ok {
		return
	}

	if err := h.resolver.UnassignRole(r.Context(), profile, membershipID, roleID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
