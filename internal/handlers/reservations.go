package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Blokmap/backend/internal/models"
	"github.com/Blokmap/backend/internal/services"
)

type ReservationsHandler struct {
	bookingService *services.BookingService
}

func NewReservationsHandler(bookingService *services.BookingService) *ReservationsHandler {
	return &ReservationsHandler{
		bookingService: bookingService,
	}
}

// CreateReservation books a block range of an opening time
func (h *ReservationsHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}
	openingTimeID, ok := uuidParam(w, r, "openingTimeID")
	if !ok {
		return
	}

	var req models.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.bookingService.CreateReservation(r.Context(), profile, locationID, openingTimeID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// ListByOpeningTime retrieves an opening time's reservations
func (h *ReservationsHandler) ListByOpeningTime(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}
	openingTimeID, ok := uuidParam(w, r, "openingTimeID")
	if !ok {
		return
	}

	reservations, err := h.bookingService.ListByOpeningTime(r.Context(), profile, locationID, openingTimeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reservations)
}

// ListByLocation retrieves a location's reservations, optionally for one day
func (h *ReservationsHandler) ListByLocation(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}
	day, ok := dayQuery(w, r)
	if !ok {
		return
	}

	reservations, err := h.bookingService.ListByLocation(r.Context(), profile, locationID, day)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reservations)
}

// CancelReservation cancels a reservation, freeing its blocks
func (h *ReservationsHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}
	openingTimeID, ok := uuidParam(w, r, "openingTimeID")
	if !ok {
		return
	}
	reservationID, ok := uuidParam(w, r, "reservationID")
	if !ok {
		return
	}

	if err := h.bookingService.CancelReservation(r.Context(), profile, locationID, openingTimeID, reservationID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ConfirmAttendance records presence or absence for a reservation
func (h *ReservationsHandler) ConfirmAttendance(w http.ResponseWriter, r *http.Request) {
	profile, ok := profileFrom(w, r)
	if !ok {
		return
	}
	locationID, ok := uuidParam(w, r, "locationID")
	if !ok {
		return
	}
	openingTimeID, ok := uuidParam(w, r, "openingTimeID")
	if !ok {
		return
	}
	reservationID, ok := uuidParam(w, r, "reservationID")
	if !ok {
		return
	}

	var req models.ConfirmReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.bookingService.ConfirmAttendance(r.Context(), profile, locationID, openingTimeID, reservationID, req.State); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
