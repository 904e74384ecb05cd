package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/conversations"
)

// Booker atomically books an appointment extracted from a conversation: it
// re-checks slot conflicts, inserts the row, and links it to the
// conversation. A conflict returns appointments.ErrSlotTaken with no writes.
type Booker interface {
	Book(ctx context.Context, req *appointments.CreateAppointmentRequest) (*appointments.Appointment, error)
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgBooker runs the conflict-check-insert-link sequence in one transaction,
// so a crash between steps can't leave an appointment without its
// conversation link.
type PgBooker struct {
	pool txBeginner
}

// NewPgBooker wraps a pgx pool.
func NewPgBooker(pool txBeginner) *PgBooker {
	if pool == nil {
		panic("pipeline: pool required")
	}
	return &PgBooker{pool: pool}
}

// Book implements Booker.
func (b *PgBooker) Book(ctx context.Context, req *appointments.CreateAppointmentRequest) (*appointments.Appointment, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	apptRepo := appointments.NewPostgresRepository(tx)
	convRepo := conversations.NewPostgresRepository(tx)

	open, err := apptRepo.ListOpenByProfessional(ctx, req.ProfessionalID)
	if err != nil {
		return nil, err
	}
	candidate := appointments.Interval{Start: req.StartTime, End: req.EndTime}
	if appointments.HasConflict(candidate, appointments.OpenIntervals(open)) {
		return nil, appointments.ErrSlotTaken
	}

	appt, err := apptRepo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.ConversationID != "" {
		if err := convRepo.LinkAppointment(ctx, req.ConversationID, appt.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: commit tx: %w", err)
	}
	return appt, nil
}

// MemoryBooker provides the same semantics over the in-memory repositories
// for tests.
type MemoryBooker struct {
	Appointments  *appointments.InMemoryRepository
	Conversations *conversations.InMemoryRepository
}

// Book implements Booker.
func (b *MemoryBooker) Book(ctx context.Context, req *appointments.CreateAppointmentRequest) (*appointments.Appointment, error) {
	open, err := b.Appointments.ListOpenByProfessional(ctx, req.ProfessionalID)
	if err != nil {
		return nil, err
	}
	candidate := appointments.Interval{Start: req.StartTime, End: req.EndTime}
	if appointments.HasConflict(candidate, appointments.OpenIntervals(open)) {
		return nil, appointments.ErrSlotTaken
	}

	appt, err := b.Appointments.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.ConversationID != "" {
		if err := b.Conversations.LinkAppointment(ctx, req.ConversationID, appt.ID); err != nil {
			return nil, err
		}
	}
	return appt, nil
}
