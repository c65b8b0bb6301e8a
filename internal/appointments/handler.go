package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/booking"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// Handler serves the appointment endpoints.
type Handler struct {
	svc           *Service
	policy        booking.Policy
	defaultPolicy slots.Policy
	logger        *logging.Logger
	now           func() time.Time
}

// NewHandler validates creates with policy and answers day queries without a
// policy parameter with defaultPolicy.
func NewHandler(svc *Service, policy booking.Policy, defaultPolicy slots.Policy, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("appointments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:           svc,
		policy:        policy,
		defaultPolicy: defaultPolicy,
		logger:        logger,
		now:           time.Now,
	}
}

type messageResponse struct {
	Message     string                `json:"message"`
	Appointment *leads.RawAppointment `json:"appointment,omitempty"`
}

type errorsResponse struct {
	Errors []booking.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// Create stores a booking from the public widget or the admin console.
// POST /api/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var raw leads.RawAppointment
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	raw.ID = ""
	if err := h.policy.ValidateRecord(raw); err != nil {
		var fieldErrs booking.FieldErrors
		if errors.As(err, &fieldErrs) {
			writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: fieldErrs})
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.svc.Create(r.Context(), raw, h.now())
	if err != nil {
		if errors.Is(err, leads.ErrUnknownStatus) {
			writeMessage(w, http.StatusBadRequest, "Invalid status")
			return
		}
		h.logger.Error("failed to save appointment", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Appointment booked successfully", Appointment: &created})
}

// List returns every appointment as a bare array.
// GET /api/appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// Update applies a partial update.
// PATCH /api/appointments/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch leads.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	dropBlank(&patch)

	updated, err := h.svc.Update(r.Context(), id, patch, h.now())
	switch {
	case errors.Is(err, ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Appointment not found")
		return
	case errors.Is(err, leads.ErrUnknownStatus):
		writeMessage(w, http.StatusBadRequest, "Invalid status")
		return
	case err != nil:
		h.logger.Error("failed to update appointment", "lead_id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Appointment updated successfully", Appointment: &updated})
}

// dropBlank ignores empty status, date and time the way the update endpoint
// always has. An empty latestNote is a real value.
func dropBlank(p *leads.Patch) {
	if p.Status != nil && strings.TrimSpace(string(*p.Status)) == "" {
		p.Status = nil
	}
	if p.Date != nil && strings.TrimSpace(*p.Date) == "" {
		p.Date = nil
	}
	if p.Time != nil && strings.TrimSpace(*p.Time) == "" {
		p.Time = nil
	}
}

// Delete removes an appointment.
// DELETE /api/appointments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.svc.Delete(r.Context(), id, h.now())
	switch {
	case errors.Is(err, ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Appointment not found")
		return
	case err != nil:
		h.logger.Error("failed to delete appointment", "lead_id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeMessage(w, http.StatusOK, "Appointment deleted successfully")
}

type bookingsResponse struct {
	Bookings []availability.Booking `json:"bookings"`
}

// Bookings lists the date and time of appointments in [from, to). No contact
// details leave this endpoint.
// GET /api/availability?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	loc := h.svc.Location()
	from, err := time.ParseInLocation(availability.DayLayout, r.URL.Query().Get("from"), loc)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.ParseInLocation(availability.DayLayout, r.URL.Query().Get("to"), loc)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if to.Sub(from) > 366*24*time.Hour {
		writeMessage(w, http.StatusBadRequest, "range must not exceed one year")
		return
	}

	bookings, err := h.svc.Bookings(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to load availability", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, bookingsResponse{Bookings: bookings})
}

// Day returns the classified slots of one day.
// GET /api/availability/day?date=YYYY-MM-DD&policy=widget
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation(availability.DayLayout, r.URL.Query().Get("date"), h.svc.Location())
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	policy := h.defaultPolicy
	if name := r.URL.Query().Get("policy"); name != "" {
		p, err := slots.PolicyByName(name)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		policy = p
	}

	view, err := h.svc.Day(r.Context(), date, policy, h.now())
	if err != nil {
		h.logger.Error("failed to load day availability", "date", r.URL.Query().Get("date"), "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type monthResponse struct {
	Month       string `json:"month"`
	FullyBooked []int  `json:"fullyBooked"`
}

// Month lists the fully booked days of a calendar month.
// GET /api/availability/month?month=YYYY-MM&policy=widget
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("month")
	month, err := time.ParseInLocation("2006-01", raw, h.svc.Location())
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	policy := h.defaultPolicy
	if name := r.URL.Query().Get("policy"); name != "" {
		if policy, err = slots.PolicyByName(name); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	days, err := h.svc.FullyBookedDays(r.Context(), month.Year(), month.Month(), policy)
	if err != nil {
		h.logger.Error("failed to load month availability", "month", raw, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if days == nil {
		days = []int{}
	}
	writeJSON(w, http.StatusOK, monthResponse{Month: raw, FullyBooked: days})
}
