package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/clients"
	"github.com/agendai/agendai-platform/internal/observability/metrics"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// sweepWindow is the width of the reminder window. The worker runs hourly, so
// each sweep owns exactly one hour of upcoming appointments.
const sweepWindow = time.Hour

// Sender delivers one WhatsApp message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Report summarizes one sweep run.
type Report struct {
	Professionals int `json:"professionals"`
	Scanned       int `json:"scanned"`
	Sent          int `json:"sent"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
}

// Sweeper walks every professional's upcoming appointments and sends WhatsApp
// reminders for the ones entering the lead window.
type Sweeper struct {
	pros     professionals.Repository
	appts    appointments.Repository
	clients  clients.Repository
	services services.Repository
	log      LogRepository
	sender   Sender
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger

	now func() time.Time
}

// NewSweeper wires the sweep over the live repositories.
func NewSweeper(
	pros professionals.Repository,
	appts appointments.Repository,
	cls clients.Repository,
	svcs services.Repository,
	log LogRepository,
	sender Sender,
	m *metrics.PipelineMetrics,
	logger *logging.Logger,
) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		pros:     pros,
		appts:    appts,
		clients:  cls,
		services: svcs,
		log:      log,
		sender:   sender,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one sweep. Per-appointment failures are counted, logged, and do
// not stop the run; the run only errors when the professional list itself
// cannot be read.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	pros, err := s.pros.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reminders: list professionals: %w", err)
	}

	report := &Report{Professionals: len(pros)}
	runAt := s.now().UTC()

	for _, pro := range pros {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.sweepProfessional(ctx, pro, runAt, report)
	}

	s.logger.Info("reminder sweep finished",
		"professionals", report.Professionals,
		"scanned", report.Scanned,
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *Sweeper) sweepProfessional(ctx context.Context, pro *professionals.Professional, runAt time.Time, report *Report) {
	settings, err := s.pros.GetSettings(ctx, pro.ID)
	if err != nil {
		if errors.Is(err, professionals.ErrSettingsNotFound) {
			return
		}
		s.logger.Error("reminder sweep: settings lookup failed", "error", err, "professional_id", pro.ID)
		report.Failed++
		return
	}

	lead := time.Duration(settings.ReminderLeadHours) * time.Hour
	if lead <= 0 {
		return
	}
	// Appointments whose start falls in [runAt+lead, runAt+lead+1h).
	from := runAt.Add(lead)
	to := from.Add(sweepWindow)

	appts, err := s.appts.ListByProfessional(ctx, pro.ID, from, to)
	if err != nil {
		s.logger.Error("reminder sweep: appointment listing failed", "error", err, "professional_id", pro.ID)
		report.Failed++
		return
	}

	for _, appt := range appts {
		if !appt.Open() {
			continue
		}
		report.Scanned++
		s.remind(ctx, pro, settings, appt, report)
	}
}

func (s *Sweeper) remind(ctx context.Context, pro *professionals.Professional, settings *professionals.Settings, appt *appointments.Appointment, report *Report) {
	sent, err := s.log.Sent(ctx, appt.ID)
	if err != nil {
		s.logger.Error("reminder sweep: log lookup failed", "error", err, "appointment_id", appt.ID)
		report.Failed++
		s.metrics.ObserveReminder("error")
		return
	}
	if sent {
		report.Skipped++
		return
	}

	client, err := s.clients.GetByID(ctx, pro.ID, appt.ClientID)
	if err != nil {
		s.logger.Error("reminder sweep: client lookup failed", "error", err, "appointment_id", appt.ID)
		report.Failed++
		s.metrics.ObserveReminder("error")
		return
	}
	if client.Phone == "" {
		report.Skipped++
		return
	}

	body := s.reminderText(ctx, pro, settings, appt, client.Name)
	if err := s.sender.Send(ctx, client.Phone, body); err != nil {
		s.logger.Error("reminder sweep: send failed", "error", err, "appointment_id", appt.ID, "professional_id", pro.ID)
		report.Failed++
		s.metrics.ObserveReminder("error")
		return
	}

	if err := s.log.MarkSent(ctx, pro.ID, appt.ID); err != nil {
		if errors.Is(err, ErrAlreadySent) {
			// A concurrent sweep won the claim after our lookup.
			report.Skipped++
			return
		}
		s.logger.Error("reminder sweep: log write failed", "error", err, "appointment_id", appt.ID)
		report.Failed++
		s.metrics.ObserveReminder("error")
		return
	}

	report.Sent++
	s.metrics.ObserveReminder("sent")
}

func (s *Sweeper) reminderText(ctx context.Context, pro *professionals.Professional, settings *professionals.Settings, appt *appointments.Appointment, clientName string) string {
	business := settings.BusinessName
	if business == "" {
		business = pro.Name
	}

	serviceName := "seu atendimento"
	if svc, err := s.services.GetByID(ctx, pro.ID, appt.ServiceID); err == nil {
		serviceName = svc.Name
	}

	start := appt.StartTime
	if loc, err := time.LoadLocation(settings.Timezone); err == nil {
		start = start.In(loc)
	}

	name := clientName
	if name == "" {
		name = "tudo bem"
	}
	return fmt.Sprintf("Olá, %s! Lembrete do %s: %s no dia %s às %s. Se precisar remarcar, é só responder por aqui.",
		name, business, serviceName, start.Format("02/01/2006"), start.Format("15:04"))
}
