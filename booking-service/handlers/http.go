package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/roomly/booking-system/booking-service/application"
)

// BookingHandlers contains booking HTTP handlers
type BookingHandlers struct {
	createBooking    *application.CreateBooking
	getBooking       *application.GetBooking
	reconcilePending *application.ReconcilePending
}

// NewBookingHandlers creates new booking handlers
func NewBookingHandlers(
	createBooking *application.CreateBooking,
	getBooking *application.GetBooking,
	reconcilePending *application.ReconcilePending,
) *BookingHandlers {
	return &BookingHandlers{
		createBooking:    createBooking,
		getBooking:       getBooking,
		reconcilePending: reconcilePending,
	}
}

// CreateBooking handles booking creation requests
func (h *BookingHandlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateBookingCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.createBooking.Execute(r.Context(), &cmd)
	if err != nil {
		if strings.Contains(err.Error(), "invalid command") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetBooking handles booking retrieval requests
func (h *BookingHandlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	query := &application.GetBookingQuery{
		BookingID: bookingID,
	}

	response, err := h.getBooking.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, application.ErrBookingNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ReconcilePending handles on-demand reconciliation sweeps
func (h *BookingHandlers) ReconcilePending(w http.ResponseWriter, r *http.Request) {
	response, err := h.reconcilePending.Execute(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers booking routes
func (h *BookingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Post("/unprocessed", h.ReconcilePending)
		r.Get("/{id}", h.GetBooking)
	})
}
