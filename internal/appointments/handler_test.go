package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/muvance-crm/internal/booking"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/slots"
)

func newTestRouter(t *testing.T) (http.Handler, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	h := NewHandler(NewService(repo, ServiceOptions{}), booking.DefaultPolicy(), slots.WidgetSlots(), nil)
	h.now = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	r.Post("/api/appointments", h.Create)
	r.Get("/api/appointments", h.List)
	r.Patch("/api/appointments/{id}", h.Update)
	r.Delete("/api/appointments/{id}", h.Delete)
	r.Get("/api/availability", h.Bookings)
	r.Get("/api/availability/day", h.Day)
	r.Get("/api/availability/month", h.Month)
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateValidationReturnsFieldErrors(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/appointments", map[string]string{
		"date": "2025-06-10", "time": "1:00 PM", "fullName": "Ada", "phoneNumber": "123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Errors []booking.FieldError `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Field != "phoneNumber" {
		t.Fatalf("unexpected errors %+v", body.Errors)
	}
}

func TestCreateThenListUpdateDelete(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/appointments", map[string]string{
		"date": "2025-06-10", "time": "1:00 PM", "fullName": "Ada", "phoneNumber": "01712345678", "status": "New",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Message     string               `json:"message"`
		Appointment leads.RawAppointment `json:"appointment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Appointment.ID == "" || created.Appointment.Status != "Meeting 1" {
		t.Fatalf("unexpected created %+v", created.Appointment)
	}
	id := created.Appointment.ID

	rec = do(t, h, http.MethodGet, "/api/appointments", nil)
	var all []leads.RawAppointment
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil || len(all) != 1 {
		t.Fatalf("unexpected list %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, h, http.MethodPatch, "/api/appointments/"+id, map[string]string{"status": "Converted", "date": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Appointment leads.RawAppointment `json:"appointment"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Appointment.Status != "Converted" || updated.Appointment.Date != "2025-06-10" {
		t.Fatalf("unexpected update %+v", updated.Appointment)
	}

	rec = do(t, h, http.MethodPatch, "/api/appointments/"+id, map[string]string{"status": "Archived"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/appointments/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodDelete, "/api/appointments/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAvailabilityEndpointsCarryNoContactDetails(t *testing.T) {
	h, repo := newTestRouter(t)
	_, _ = repo.Create(context.Background(), leads.RawAppointment{Date: "2025-06-10", Time: "1:00 PM", FullName: "Ada", PhoneNumber: "01712345678"})

	rec := do(t, h, http.MethodGet, "/api/availability?from=2025-06-01&to=2025-07-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("01712345678")) || bytes.Contains(rec.Body.Bytes(), []byte("Ada")) {
		t.Fatalf("availability leaked contact details: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/availability?from=bad&to=2025-07-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/availability/day?date=2025-06-10", nil)
	var view DayView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Policy != slots.PolicyWidget || len(view.Slots) != 5 {
		t.Fatalf("unexpected day view %+v", view)
	}

	rec = do(t, h, http.MethodGet, "/api/availability/day?date=2025-06-10&policy=nope", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown policy, got %d", rec.Code)
	}
}

func TestMonthEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/availability/month?month=2025-13", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/availability/month?month=2025-06&policy=admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body monthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Month != "2025-06" || len(body.FullyBooked) != 0 {
		t.Fatalf("unexpected month response %+v", body)
	}
}
