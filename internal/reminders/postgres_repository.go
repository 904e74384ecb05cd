package reminders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLogRepository stores the reminder log in the relational database.
type PostgresLogRepository struct {
	db db
}

// NewPostgresLogRepository initializes a repo backed by pgxpool.
func NewPostgresLogRepository(db db) *PostgresLogRepository {
	if db == nil {
		panic("reminders: db required")
	}
	return &PostgresLogRepository{db: db}
}

// Sent reports whether a reminder for the appointment was already delivered.
func (r *PostgresLogRepository) Sent(ctx context.Context, appointmentID string) (bool, error) {
	var sent bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reminder_log WHERE appointment_id = $1)`,
		appointmentID).Scan(&sent)
	if err != nil {
		return false, fmt.Errorf("reminders: log lookup failed: %w", err)
	}
	return sent, nil
}

// MarkSent records a delivery. The unique constraint on appointment_id makes
// concurrent sweeps safe: the loser gets ErrAlreadySent.
func (r *PostgresLogRepository) MarkSent(ctx context.Context, professionalID, appointmentID string) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO reminder_log (appointment_id, professional_id, sent_at)
		VALUES ($1, $2, now())
		ON CONFLICT (appointment_id) DO NOTHING
	`, appointmentID, professionalID)
	if err != nil {
		return fmt.Errorf("reminders: log insert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySent
	}
	return nil
}
