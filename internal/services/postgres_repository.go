package services

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

// PostgresRepository stores services in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("services: db required")
	}
	return &PostgresRepository{db: db}
}

const serviceColumns = `id, professional_id, name, duration_minutes, price_cents, COALESCE(color, ''), active, created_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	query := `
		INSERT INTO services (id, professional_id, name, duration_minutes, price_cents, color, active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id, req.ProfessionalID, req.Name, req.DurationMinutes, req.PriceCents, req.Color,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("services: insert failed: %w", err)
	}
	return &Service{
		ID:              id,
		ProfessionalID:  req.ProfessionalID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Color:           req.Color,
		Active:          true,
		CreatedAt:       createdAt,
	}, nil
}

// GetByID fetches a service scoped to the professional.
func (r *PostgresRepository) GetByID(ctx context.Context, professionalID, id string) (*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND professional_id = $2`
	return scanService(r.db.QueryRow(ctx, query, id, professionalID))
}

// Update applies non-nil fields and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, professionalID, id string, req *UpdateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query := `
		UPDATE services
		SET name = COALESCE($3, name),
		    duration_minutes = COALESCE($4, duration_minutes),
		    price_cents = COALESCE($5, price_cents),
		    color = COALESCE($6, color),
		    active = COALESCE($7, active)
		WHERE id = $1 AND professional_id = $2
		RETURNING ` + serviceColumns
	return scanService(r.db.QueryRow(ctx, query, id, professionalID,
		req.Name, req.DurationMinutes, req.PriceCents, req.Color, req.Active))
}

// Delete deactivates a service. Appointment rows keep their reference.
func (r *PostgresRepository) Delete(ctx context.Context, professionalID, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE services SET active = false WHERE id = $1 AND professional_id = $2`,
		id, professionalID)
	if err != nil {
		return fmt.Errorf("services: deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByProfessional returns services for a professional.
func (r *PostgresRepository) ListByProfessional(ctx context.Context, professionalID string, activeOnly bool) ([]*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE professional_id = $1`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("services: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.ProfessionalID, &s.Name, &s.DurationMinutes,
			&s.PriceCents, &s.Color, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("services: scan failed: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	if err := row.Scan(&s.ID, &s.ProfessionalID, &s.Name, &s.DurationMinutes,
		&s.PriceCents, &s.Color, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: select failed: %w", err)
	}
	return &s, nil
}
