package handlers

import (
	"net/http"
	"strconv"

	"github.com/Blokmap/backend/internal/repository"
	"github.com/go-chi/chi/v5"
)

type AuditHandler struct {
	auditRepo *repository.AuditRepository
}

func NewAuditHandler(auditRepo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
	}
}

// ListByProfile retrieves a profile's audit trail. Profiles may read their
// own trail; reading someone else's is admin-only.
func (h *AuditHandler) ListByProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	profileID, ok := uuidParam(w, r, "profileID")
	if !ok {
		return
	}
	if profileID != profile.ID && !profile.IsAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	logs, err := h.auditRepo.GetByProfileID(r.Context(), profileID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

// ListByResource retrieves the audit trail of one resource. Admin-only.
func (h *AuditHandler) ListByResource(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	if !profile.IsAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	resourceType := chi.URLParam(r, "resourceType")
	resourceID := chi.URLParam(r, "resourceID")

	logs, err := h.auditRepo.GetByResource(r.Context(), resourceType, resourceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
