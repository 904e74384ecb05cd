package reminders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/clients"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

type fakeSender struct {
	mu     sync.Mutex
	sends  []string
	bodies []string
	err    error
}

func (f *fakeSender) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, to)
	f.bodies = append(f.bodies, body)
	return nil
}

type env struct {
	pros     *professionals.InMemoryRepository
	appts    *appointments.InMemoryRepository
	clients  *clients.InMemoryRepository
	services *services.InMemoryRepository
	log      *InMemoryLogRepository
	sender   *fakeSender
	sweeper  *Sweeper

	runAt    time.Time
	clientID string
	svcID    string
}

func newEnv(t *testing.T, leadHours int) *env {
	t.Helper()
	e := &env{
		pros:     professionals.NewInMemoryRepository(),
		appts:    appointments.NewInMemoryRepository(),
		clients:  clients.NewInMemoryRepository(),
		services: services.NewInMemoryRepository(),
		log:      NewInMemoryLogRepository(),
		sender:   &fakeSender{},
		runAt:    time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC),
	}

	e.pros.Seed(&professionals.Professional{ID: "pro-1", Name: "Ana Lima", WhatsAppNumber: "+5511988880000"})
	e.pros.SeedSettings(&professionals.Settings{
		ProfessionalID:    "pro-1",
		BusinessName:      "Studio Ana",
		AssistantName:     "Clara",
		Timezone:          "UTC",
		ReminderLeadHours: leadHours,
	})

	svc, err := e.services.Create(context.Background(), &services.CreateServiceRequest{
		ProfessionalID:  "pro-1",
		Name:            "Corte",
		DurationMinutes: 60,
		PriceCents:      8000,
	})
	if err != nil {
		t.Fatal(err)
	}
	e.svcID = svc.ID

	cl, err := e.clients.Create(context.Background(), &clients.CreateClientRequest{
		ProfessionalID: "pro-1",
		Name:           "Bruno",
		Phone:          "+5511977770000",
	})
	if err != nil {
		t.Fatal(err)
	}
	e.clientID = cl.ID

	e.sweeper = NewSweeper(e.pros, e.appts, e.clients, e.services, e.log, e.sender, nil, logging.Default())
	e.sweeper.now = func() time.Time { return e.runAt }
	return e
}

func (e *env) book(t *testing.T, start time.Time, status string) *appointments.Appointment {
	t.Helper()
	appt, err := e.appts.Create(context.Background(), &appointments.CreateAppointmentRequest{
		ProfessionalID: "pro-1",
		ClientID:       e.clientID,
		ServiceID:      e.svcID,
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Status:         status,
	})
	if err != nil {
		t.Fatal(err)
	}
	return appt
}

func TestRun_SendsReminderInsideWindow(t *testing.T) {
	e := newEnv(t, 24)
	e.book(t, e.runAt.Add(24*time.Hour+30*time.Minute), appointments.StatusConfirmed)

	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Sent != 1 {
		t.Fatalf("expected 1 reminder, got %+v", report)
	}
	if len(e.sender.sends) != 1 || e.sender.sends[0] != "+5511977770000" {
		t.Fatalf("unexpected recipients: %v", e.sender.sends)
	}
	body := e.sender.bodies[0]
	for _, want := range []string{"Bruno", "Studio Ana", "Corte", "21/04/2026", "09:30"} {
		if !strings.Contains(body, want) {
			t.Errorf("reminder body missing %q: %s", want, body)
		}
	}
}

func TestRun_SecondSweepSkipsLoggedAppointments(t *testing.T) {
	e := newEnv(t, 24)
	e.book(t, e.runAt.Add(24*time.Hour+30*time.Minute), appointments.StatusScheduled)

	if _, err := e.sweeper.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Sent != 0 || report.Skipped != 1 {
		t.Fatalf("expected replay to skip, got %+v", report)
	}
	if len(e.sender.sends) != 1 {
		t.Fatalf("expected exactly one delivery across sweeps, got %d", len(e.sender.sends))
	}
}

func TestRun_WindowBoundaries(t *testing.T) {
	e := newEnv(t, 24)
	// Start exactly at runAt+lead is inside; start exactly at runAt+lead+1h
	// belongs to the next sweep.
	e.book(t, e.runAt.Add(24*time.Hour), appointments.StatusScheduled)
	e.book(t, e.runAt.Add(25*time.Hour), appointments.StatusScheduled)
	e.book(t, e.runAt.Add(23*time.Hour+59*time.Minute), appointments.StatusScheduled)

	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Sent != 1 {
		t.Fatalf("expected only the lower-bound appointment, got %+v", report)
	}
}

func TestRun_IgnoresCancelledAppointments(t *testing.T) {
	e := newEnv(t, 24)
	e.book(t, e.runAt.Add(24*time.Hour+15*time.Minute), appointments.StatusCancelled)

	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Sent != 0 || report.Scanned != 0 {
		t.Fatalf("cancelled appointment should not be scanned, got %+v", report)
	}
}

func TestRun_SendFailureRetriesNextSweep(t *testing.T) {
	e := newEnv(t, 24)
	e.book(t, e.runAt.Add(24*time.Hour+30*time.Minute), appointments.StatusScheduled)

	e.sender.err = errors.New("twilio: 503")
	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 || report.Sent != 0 {
		t.Fatalf("expected failed delivery, got %+v", report)
	}

	e.sender.err = nil
	report, err = e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Sent != 1 {
		t.Fatalf("expected retry to deliver, got %+v", report)
	}
}

func TestRun_MissingSettingsSkipsProfessional(t *testing.T) {
	e := newEnv(t, 24)
	e.pros.Seed(&professionals.Professional{ID: "pro-2", Name: "Sem Ajustes"})
	e.book(t, e.runAt.Add(24*time.Hour+30*time.Minute), appointments.StatusScheduled)

	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Professionals != 2 || report.Sent != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRun_ZeroLeadDisablesReminders(t *testing.T) {
	e := newEnv(t, 0)
	e.book(t, e.runAt.Add(30*time.Minute), appointments.StatusScheduled)

	report, err := e.sweeper.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Sent != 0 || report.Scanned != 0 {
		t.Fatalf("lead 0 must disable reminders, got %+v", report)
	}
}
