package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agendai/agendai-platform/internal/clients"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (f *fakeNotifier) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to+": "+body)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fixture struct {
	repo     *InMemoryRepository
	avail    *InMemoryAvailabilityRepository
	services *services.InMemoryRepository
	clients  *clients.InMemoryRepository
	pros     *professionals.InMemoryRepository
	notifier *fakeNotifier
	router   *chi.Mux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewInMemoryRepository(),
		avail:    NewInMemoryAvailabilityRepository(),
		services: services.NewInMemoryRepository(),
		clients:  clients.NewInMemoryRepository(),
		pros:     professionals.NewInMemoryRepository(),
		notifier: &fakeNotifier{},
	}
	f.pros.Seed(&professionals.Professional{
		ID:             "pro-1",
		Name:           "Ana Lima",
		WhatsAppNumber: "+5511988880000",
	})

	h := NewHandler(f.repo, f.avail, f.services, f.clients, f.pros, f.notifier, logging.Default())
	r := chi.NewRouter()
	r.Get("/appointments", h.List)
	r.Post("/appointments", h.Create)
	r.Get("/appointments/available-slots", h.AvailableSlots)
	r.Get("/appointments/{id}", h.Get)
	r.Patch("/appointments/{id}", h.Update)
	r.Delete("/appointments/{id}", h.Cancel)
	r.Post("/appointments/{id}/confirm", h.Confirm)
	r.Post("/appointments/{id}/cancel", h.Cancel)
	f.router = r
	return f
}

func (f *fixture) seedClient(t *testing.T) *clients.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), &clients.CreateClientRequest{
		ProfessionalID: "pro-1", Name: "Bia", Phone: "+5511977770000",
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func (f *fixture) seedService(t *testing.T) *services.Service {
	t.Helper()
	s, err := f.services.Create(context.Background(), &services.CreateServiceRequest{
		ProfessionalID: "pro-1", Name: "Corte", DurationMinutes: 60, PriceCents: 8000,
	})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return s
}

func (f *fixture) seedAppointment(t *testing.T, start time.Time, status string) *Appointment {
	t.Helper()
	c := f.seedClient(t)
	s := f.seedService(t)
	a, err := f.repo.Create(context.Background(), &CreateAppointmentRequest{
		ProfessionalID: "pro-1",
		ClientID:       c.ID,
		ServiceID:      s.ID,
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Status:         status,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func (f *fixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(tenancy.WithProfessionalID(req.Context(), "pro-1"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreateAppointment_DefaultsToScheduled(t *testing.T) {
	f := newFixture(t)
	c := f.seedClient(t)
	s := f.seedService(t)

	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	body, _ := json.Marshal(map[string]any{
		"client_id":  c.ID,
		"service_id": s.ID,
		"start_time": start,
		"end_time":   start.Add(time.Hour),
	})

	w := f.do(http.MethodPost, "/appointments", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var appt Appointment
	_ = json.NewDecoder(w.Body).Decode(&appt)
	if appt.Status != StatusScheduled {
		t.Errorf("expected default status scheduled, got %s", appt.Status)
	}
	if appt.Source != SourceAPI {
		t.Errorf("expected source api, got %s", appt.Source)
	}
}

func TestCreateAppointment_ConflictRejected(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	existing := f.seedAppointment(t, start, StatusScheduled)

	body, _ := json.Marshal(map[string]any{
		"client_id":  existing.ClientID,
		"service_id": existing.ServiceID,
		"start_time": start.Add(30 * time.Minute),
		"end_time":   start.Add(90 * time.Minute),
	})

	w := f.do(http.MethodPost, "/appointments", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateAppointment_BackToBackAllowed(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	existing := f.seedAppointment(t, start, StatusScheduled)

	body, _ := json.Marshal(map[string]any{
		"client_id":  existing.ClientID,
		"service_id": existing.ServiceID,
		"start_time": start.Add(time.Hour),
		"end_time":   start.Add(2 * time.Hour),
	})

	w := f.do(http.MethodPost, "/appointments", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for back-to-back slot, got %d: %s", w.Code, w.Body.String())
	}
}

func TestConfirm_SendsOneNotification(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	appt := f.seedAppointment(t, start, StatusScheduled)

	w := f.do(http.MethodPost, "/appointments/"+appt.ID+"/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got Appointment
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.Status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", got.Status)
	}
	if f.notifier.count() != 1 {
		t.Errorf("expected exactly one notification, got %d", f.notifier.count())
	}
}

func TestConfirm_NoPhoneNoNotification(t *testing.T) {
	f := newFixture(t)
	s := f.seedService(t)
	c, _ := f.clients.Create(context.Background(), &clients.CreateClientRequest{
		ProfessionalID: "pro-1", Name: "Sem Fone", Phone: "+5511900000000",
	})
	// Blank out the professional's WhatsApp number.
	f.pros.Seed(&professionals.Professional{ID: "pro-1", Name: "Ana Lima"})

	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	appt, _ := f.repo.Create(context.Background(), &CreateAppointmentRequest{
		ProfessionalID: "pro-1", ClientID: c.ID, ServiceID: s.ID,
		StartTime: start, EndTime: start.Add(time.Hour),
	})

	w := f.do(http.MethodPost, "/appointments/"+appt.ID+"/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.notifier.count() != 0 {
		t.Errorf("expected zero notifications without a sender number, got %d", f.notifier.count())
	}
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	appt := f.seedAppointment(t, start, StatusScheduled)

	first := f.do(http.MethodPost, "/appointments/"+appt.ID+"/cancel", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 on first cancel, got %d", first.Code)
	}
	second := f.do(http.MethodPost, "/appointments/"+appt.ID+"/cancel", nil)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat cancel, got %d", second.Code)
	}

	got, _ := f.repo.GetByID(context.Background(), "pro-1", appt.ID)
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
	// The second cancel still attempts the notification.
	if f.notifier.count() != 2 {
		t.Errorf("expected 2 notification attempts, got %d", f.notifier.count())
	}
}

func TestCancel_NotificationFailureNotPropagated(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = context.DeadlineExceeded
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	appt := f.seedAppointment(t, start, StatusScheduled)

	w := f.do(http.MethodPost, "/appointments/"+appt.ID+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 despite send failure, got %d", w.Code)
	}
}

func TestUpdate_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	appt := f.seedAppointment(t, start, StatusCancelled)

	body := []byte(`{"status": "confirmed"}`)
	w := f.do(http.MethodPatch, "/appointments/"+appt.ID, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for cancelled to confirmed, got %d", w.Code)
	}
}

func TestAvailableSlots_Endpoint(t *testing.T) {
	f := newFixture(t)
	s := f.seedService(t)
	f.avail.Seed(Availability{ProfessionalID: "pro-1", Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 12 * 60})

	// Book 10:00-11:00 on the Tuesday in question.
	f.seedAppointment(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), StatusScheduled)

	w := f.do(http.MethodGet, "/appointments/available-slots?date=2026-03-10&service_id="+s.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var slots []Interval
	if err := json.NewDecoder(w.Body).Decode(&slots); err != nil {
		t.Fatalf("failed to decode slots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 free slots, got %d", len(slots))
	}
}

func TestAvailableSlots_MissingServiceID(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/appointments/available-slots?date=2026-03-10", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestList_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
