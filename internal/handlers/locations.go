package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/services"
)

type LocationsHandler struct {
	locationService *services.LocationService
}

func NewLocationsHandler(locationService *services.LocationService) *LocationsHandler {
	return &LocationsHandler{
		locationService: locationService,
	}
}

// CreateLocation creates a new location
func (h *LocationsHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	loc, err := h.locationService.CreateLocation(r.Context(), profile, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, loc)
}

// GetLocation retrieves a location by id
func (h *LocationsHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}

	loc, err := h.locationService.GetLocation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

// ListLocations retrieves all locations
func (h *LocationsHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locationService.ListLocations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, locations)
}

// CreateOpeningTime adds a bookable window to a location
func (h *LocationsHandler) CreateOpeningTime(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}

	var req models.CreateOpeningTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ot, err := h.locationService.CreateOpeningTime(r.Context(), profile, locationID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ot)
}

// ListOpeningTimes retrieves a location's windows, optionally for one day
func (h *LocationsHandler) ListOpeningTimes(w http.ResponseWriter, r *http.Request) {
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}
	day, ok := dayQuery(w, r)
	if !ok {
		return
	}

	openingTimes, err := h.locationService.ListOpeningTimes(r.Context(), locationID, day)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, openingTimes)
}
