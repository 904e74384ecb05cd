package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores clients in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("clients: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateClientRequest) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	query := `
		INSERT INTO clients (id, professional_id, name, phone, email, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id, req.ProfessionalID, req.Name, req.Phone, req.Email, req.Notes,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("clients: insert failed: %w", err)
	}
	return &Client{
		ID:             id,
		ProfessionalID: req.ProfessionalID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Notes:          req.Notes,
		CreatedAt:      createdAt,
	}, nil
}

// GetByID fetches a client scoped to the professional.
func (r *PostgresRepository) GetByID(ctx context.Context, professionalID, id string) (*Client, error) {
	query := `
		SELECT id, professional_id, name, phone, COALESCE(email, ''), COALESCE(notes, ''), created_at
		FROM clients
		WHERE id = $1 AND professional_id = $2
	`
	return scanClient(r.db.QueryRow(ctx, query, id, professionalID))
}

// GetOrCreateByPhone finds the client owning a phone number, creating the row
// on first contact. The (professional_id, phone) unique constraint makes the
// upsert race-free across concurrent webhooks.
func (r *PostgresRepository) GetOrCreateByPhone(ctx context.Context, professionalID, phone, name string) (*Client, error) {
	query := `
		INSERT INTO clients (id, professional_id, name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (professional_id, phone) DO UPDATE SET
			name = CASE WHEN clients.name = '' THEN EXCLUDED.name ELSE clients.name END
		RETURNING id, professional_id, name, phone, COALESCE(email, ''), COALESCE(notes, ''), created_at
	`
	return scanClient(r.db.QueryRow(ctx, query, uuid.New().String(), professionalID, name, phone))
}

// ListByProfessional returns all clients for a professional, newest first.
func (r *PostgresRepository) ListByProfessional(ctx context.Context, professionalID string) ([]*Client, error) {
	query := `
		SELECT id, professional_id, name, phone, COALESCE(email, ''), COALESCE(notes, ''), created_at
		FROM clients
		WHERE professional_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("clients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.ProfessionalID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("clients: scan failed: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.ProfessionalID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clients: select failed: %w", err)
	}
	return &c, nil
}
