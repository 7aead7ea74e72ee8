package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/middleware"
	"github.com/Blokmap/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// writeError translates a core error into its HTTP status. Internal errors
// are logged and masked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, status, errorResponse{Error: "Internal Server Error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Retryable: apperrors.Retryable(err)})
}

// profileFrom extracts the authenticated profile or writes a 401.
func profileFrom(w http.ResponseWriter, r *http.Request) (models.Profile, bool) {
	profile, ok := middleware.GetProfile(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
	}
	return profile, ok
}

// uuidParam parses a UUID path parameter or writes a 400.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// dayQuery parses an optional ?day=YYYY-MM-DD filter.
func dayQuery(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		http.Error(w, "Invalid day, expected YYYY-MM-DD", http.StatusBadRequest)
		return nil, false
	}
	return &day, true
}
