package professionals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores professionals in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("professionals: db required")
	}
	return &PostgresRepository{db: db}
}

const professionalColumns = `id, name, email, phone, whatsapp_number,
	COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
	COALESCE(subscription_tier, ''), subscription_status, created_at, updated_at`

func (r *PostgresRepository) scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.WhatsAppNumber,
		&p.StripeCustomerID,
		&p.StripeSubscriptionID,
		&p.SubscriptionTier,
		&p.SubscriptionStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("professionals: select failed: %w", err)
	}
	return &p, nil
}

// GetByID fetches a professional by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Professional, error) {
	query := `SELECT ` + professionalColumns + ` FROM professionals WHERE id = $1`
	return r.scanProfessional(r.db.QueryRow(ctx, query, id))
}

// GetByWhatsAppNumber resolves the professional owning an inbound WhatsApp number.
func (r *PostgresRepository) GetByWhatsAppNumber(ctx context.Context, number string) (*Professional, error) {
	query := `SELECT ` + professionalColumns + ` FROM professionals WHERE whatsapp_number = $1`
	return r.scanProfessional(r.db.QueryRow(ctx, query, number))
}

// GetByStripeCustomer resolves a professional from the billing customer id.
func (r *PostgresRepository) GetByStripeCustomer(ctx context.Context, customerID string) (*Professional, error) {
	query := `SELECT ` + professionalColumns + ` FROM professionals WHERE stripe_customer_id = $1`
	return r.scanProfessional(r.db.QueryRow(ctx, query, customerID))
}

// ListAll returns every professional, used by the reminder sweep.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Professional, error) {
	query := `SELECT ` + professionalColumns + ` FROM professionals ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("professionals: list failed: %w", err)
	}
	defer rows.Close()

	var pros []*Professional
	for rows.Next() {
		p, err := r.scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		pros = append(pros, p)
	}
	return pros, rows.Err()
}

// UpdateProfile applies non-nil fields and returns the updated row.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) (*Professional, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query := `
		UPDATE professionals
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    whatsapp_number = COALESCE($5, whatsapp_number),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + professionalColumns
	return r.scanProfessional(r.db.QueryRow(ctx, query, id, req.Name, req.Email, req.Phone, req.WhatsAppNumber))
}

// GetSettings returns the settings row for a professional.
func (r *PostgresRepository) GetSettings(ctx context.Context, id string) (*Settings, error) {
	query := `
		SELECT professional_id, business_name, assistant_name, assistant_tone,
		       timezone, reminder_lead_hours, workday_start, workday_end
		FROM professional_settings
		WHERE professional_id = $1
	`
	var s Settings
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ProfessionalID,
		&s.BusinessName,
		&s.AssistantName,
		&s.AssistantTone,
		&s.Timezone,
		&s.ReminderLeadHours,
		&s.WorkdayStart,
		&s.WorkdayEnd,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("professionals: settings select failed: %w", err)
	}
	return &s, nil
}

// PutSettings upserts the settings row.
func (r *PostgresRepository) PutSettings(ctx context.Context, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO professional_settings (professional_id, business_name, assistant_name,
			assistant_tone, timezone, reminder_lead_hours, workday_start, workday_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (professional_id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			assistant_name = EXCLUDED.assistant_name,
			assistant_tone = EXCLUDED.assistant_tone,
			timezone = EXCLUDED.timezone,
			reminder_lead_hours = EXCLUDED.reminder_lead_hours,
			workday_start = EXCLUDED.workday_start,
			workday_end = EXCLUDED.workday_end
	`
	if _, err := r.db.Exec(ctx, query,
		settings.ProfessionalID,
		settings.BusinessName,
		settings.AssistantName,
		settings.AssistantTone,
		settings.Timezone,
		settings.ReminderLeadHours,
		settings.WorkdayStart,
		settings.WorkdayEnd,
	); err != nil {
		return fmt.Errorf("professionals: settings upsert failed: %w", err)
	}
	return nil
}

// SetStripeCustomer stores the billing customer id on the professional row.
func (r *PostgresRepository) SetStripeCustomer(ctx context.Context, id, customerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE professionals SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`,
		id, customerID)
	if err != nil {
		return fmt.Errorf("professionals: set stripe customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSubscription mirrors subscription state from the billing provider.
func (r *PostgresRepository) SetSubscription(ctx context.Context, id, subscriptionID, tier, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE professionals
		SET stripe_subscription_id = $2,
		    subscription_tier = $3,
		    subscription_status = $4,
		    updated_at = now()
		WHERE id = $1
	`, id, subscriptionID, tier, status)
	if err != nil {
		return fmt.Errorf("professionals: set subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
