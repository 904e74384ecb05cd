package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores appointments in the relational database. It also
// works over a pgx.Tx, which the webhook pipeline uses to make the
// conflict-check-and-insert sequence atomic.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool or a transaction.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

const apptColumns = `id, professional_id, client_id, service_id, start_time, end_time,
	status, COALESCE(notes, ''), source, COALESCE(conversation_id::text, ''), created_at, updated_at`

// Create inserts a new appointment row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	query := `
		INSERT INTO appointments
			(id, professional_id, client_id, service_id, start_time, end_time, status, notes, source, conversation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, '')::uuid)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id, req.ProfessionalID, req.ClientID, req.ServiceID,
		req.StartTime, req.EndTime, req.Status, req.Notes, req.Source, req.ConversationID,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return &Appointment{
		ID:             id,
		ProfessionalID: req.ProfessionalID,
		ClientID:       req.ClientID,
		ServiceID:      req.ServiceID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         req.Status,
		Notes:          req.Notes,
		Source:         req.Source,
		ConversationID: req.ConversationID,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// GetByID fetches an appointment scoped to the professional.
func (r *PostgresRepository) GetByID(ctx context.Context, professionalID, id string) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1 AND professional_id = $2`
	return scanAppointment(r.db.QueryRow(ctx, query, id, professionalID))
}

// Update applies non-nil fields after checking the status transition.
func (r *PostgresRepository) Update(ctx context.Context, professionalID, id string, req *UpdateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Status != nil {
		current, err := r.GetByID(ctx, professionalID, id)
		if err != nil {
			return nil, err
		}
		if !CanTransition(current.Status, *req.Status) {
			return nil, ErrInvalidTransition
		}
	}
	query := `
		UPDATE appointments
		SET start_time = COALESCE($3, start_time),
		    end_time = COALESCE($4, end_time),
		    status = COALESCE($5, status),
		    notes = COALESCE($6, notes),
		    service_id = COALESCE($7, service_id),
		    updated_at = NOW()
		WHERE id = $1 AND professional_id = $2
		RETURNING ` + apptColumns
	return scanAppointment(r.db.QueryRow(ctx, query, id, professionalID,
		req.StartTime, req.EndTime, req.Status, req.Notes, req.ServiceID))
}

// SetStatus transitions the appointment, enforcing the transition table.
func (r *PostgresRepository) SetStatus(ctx context.Context, professionalID, id, status string) (*Appointment, error) {
	current, err := r.GetByID(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, status) {
		return nil, ErrInvalidTransition
	}
	query := `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND professional_id = $2
		RETURNING ` + apptColumns
	return scanAppointment(r.db.QueryRow(ctx, query, id, professionalID, status))
}

// ListByProfessional returns appointments starting in [from, to), ordered by
// start time. Zero bounds mean unbounded.
func (r *PostgresRepository) ListByProfessional(ctx context.Context, professionalID string, from, to time.Time) ([]*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE professional_id = $1`
	args := []any{professionalID}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND start_time >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND start_time < $%d`, len(args))
	}
	query += ` ORDER BY start_time`
	return r.list(ctx, query, args...)
}

// ListOpenByProfessional returns scheduled and confirmed appointments, the
// set the conflict check runs against.
func (r *PostgresRepository) ListOpenByProfessional(ctx context.Context, professionalID string) ([]*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments
		WHERE professional_id = $1 AND status IN ('scheduled', 'confirmed')
		ORDER BY start_time`
	return r.list(ctx, query, professionalID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ProfessionalID, &a.ClientID, &a.ServiceID,
			&a.StartTime, &a.EndTime, &a.Status, &a.Notes, &a.Source,
			&a.ConversationID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.ProfessionalID, &a.ClientID, &a.ServiceID,
		&a.StartTime, &a.EndTime, &a.Status, &a.Notes, &a.Source,
		&a.ConversationID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return &a, nil
}

// PostgresAvailabilityRepository reads weekly windows from the database.
type PostgresAvailabilityRepository struct {
	db db
}

// NewPostgresAvailabilityRepository initializes the availability reader.
func NewPostgresAvailabilityRepository(db db) *PostgresAvailabilityRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresAvailabilityRepository{db: db}
}

// ListByProfessional returns the professional's weekly windows ordered by
// weekday and start.
func (r *PostgresAvailabilityRepository) ListByProfessional(ctx context.Context, professionalID string) ([]Availability, error) {
	query := `
		SELECT id, professional_id, weekday, start_minute, end_minute
		FROM availabilities
		WHERE professional_id = $1
		ORDER BY weekday, start_minute
	`
	rows, err := r.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("appointments: availability list failed: %w", err)
	}
	defer rows.Close()

	var out []Availability
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.ID, &a.ProfessionalID, &a.Weekday, &a.StartMinute, &a.EndMinute); err != nil {
			return nil, fmt.Errorf("appointments: availability scan failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
