package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// PostgresRepository stores conversations and messages.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool or a transaction.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("conversations: db required")
	}
	return &PostgresRepository{db: db}
}

const convColumns = `id, professional_id, client_phone, COALESCE(client_name, ''),
	status, COALESCE(appointment_id::text, ''), created_at, updated_at`

// LookupOrCreateActive returns the single active conversation for the pair,
// creating one when none exists. The partial unique index on
// (professional_id, client_phone) WHERE status = 'active' makes the create
// race-safe: a concurrent insert loses and we re-read the winner.
func (r *PostgresRepository) LookupOrCreateActive(ctx context.Context, professionalID, clientPhone, clientName string) (*Conversation, error) {
	if strings.TrimSpace(clientPhone) == "" {
		return nil, ErrMissingPhone
	}

	conv, err := r.activeByPhone(ctx, professionalID, clientPhone)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id := uuid.New().String()
	query := `
		INSERT INTO conversations (id, professional_id, client_phone, client_name, status)
		VALUES ($1, $2, $3, $4, 'active')
		ON CONFLICT (professional_id, client_phone) WHERE status = 'active' DO NOTHING
		RETURNING ` + convColumns
	conv, err = scanConversation(r.db.QueryRow(ctx, query, id, professionalID, clientPhone, clientName))
	if err == nil {
		return conv, nil
	}
	if errors.Is(err, ErrNotFound) {
		// Lost the race; the active row now exists.
		return r.activeByPhone(ctx, professionalID, clientPhone)
	}
	return nil, err
}

func (r *PostgresRepository) activeByPhone(ctx context.Context, professionalID, clientPhone string) (*Conversation, error) {
	query := `SELECT ` + convColumns + ` FROM conversations
		WHERE professional_id = $1 AND client_phone = $2 AND status = 'active'`
	return scanConversation(r.db.QueryRow(ctx, query, professionalID, clientPhone))
}

// GetByID fetches a conversation scoped to the professional.
func (r *PostgresRepository) GetByID(ctx context.Context, professionalID, id string) (*Conversation, error) {
	query := `SELECT ` + convColumns + ` FROM conversations WHERE id = $1 AND professional_id = $2`
	return scanConversation(r.db.QueryRow(ctx, query, id, professionalID))
}

// ListByProfessional returns conversations newest-first.
func (r *PostgresRepository) ListByProfessional(ctx context.Context, professionalID string) ([]*Conversation, error) {
	query := `SELECT ` + convColumns + ` FROM conversations
		WHERE professional_id = $1 ORDER BY updated_at DESC`
	rows, err := r.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("conversations: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.ProfessionalID, &c.ClientPhone, &c.ClientName,
			&c.Status, &c.AppointmentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("conversations: scan failed: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Close marks the conversation closed. Closing twice is a no-op.
func (r *PostgresRepository) Close(ctx context.Context, professionalID, id string) (*Conversation, error) {
	query := `
		UPDATE conversations SET status = 'closed', updated_at = NOW()
		WHERE id = $1 AND professional_id = $2
		RETURNING ` + convColumns
	return scanConversation(r.db.QueryRow(ctx, query, id, professionalID))
}

// LinkAppointment attaches an appointment to the conversation.
func (r *PostgresRepository) LinkAppointment(ctx context.Context, conversationID, appointmentID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE conversations SET appointment_id = $2, updated_at = NOW() WHERE id = $1`,
		conversationID, appointmentID)
	if err != nil {
		return fmt.Errorf("conversations: link appointment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage stores a new message and bumps the conversation's updated_at.
func (r *PostgresRepository) AppendMessage(ctx context.Context, req *AppendMessageRequest) (*Message, error) {
	if strings.TrimSpace(req.Content) == "" && req.MediaURL == "" {
		return nil, ErrEmptyMessage
	}
	msgType := req.MessageType
	if msgType == "" {
		msgType = MessageTypeText
	}

	id := uuid.New().String()
	query := `
		INSERT INTO messages (id, conversation_id, content, from_client, message_type, transcription, media_url)
		SELECT $1, $2, $3, $4, $5, $6, $7
		FROM conversations WHERE id = $2 AND status = 'active'
		RETURNING created_at
	`
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query,
		id, req.ConversationID, req.Content, req.FromClient, msgType, req.Transcription, req.MediaURL,
	).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the conversation is missing or it is closed.
			if _, getErr := scanConversation(r.db.QueryRow(ctx,
				`SELECT `+convColumns+` FROM conversations WHERE id = $1`, req.ConversationID)); getErr != nil {
				return nil, ErrNotFound
			}
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("conversations: insert message failed: %w", err)
	}

	if _, err := r.db.Exec(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, req.ConversationID); err != nil {
		return nil, fmt.Errorf("conversations: touch failed: %w", err)
	}

	return &Message{
		ID:             id,
		ConversationID: req.ConversationID,
		Content:        req.Content,
		FromClient:     req.FromClient,
		MessageType:    msgType,
		Transcription:  req.Transcription,
		MediaURL:       req.MediaURL,
		CreatedAt:      createdAt,
	}, nil
}

// ListMessages returns the conversation's messages oldest-first.
func (r *PostgresRepository) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, content, from_client, message_type,
			COALESCE(transcription, ''), COALESCE(media_url, ''), created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversations: list messages failed: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.FromClient,
			&m.MessageType, &m.Transcription, &m.MediaURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversations: scan message failed: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.ProfessionalID, &c.ClientPhone, &c.ClientName,
		&c.Status, &c.AppointmentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("conversations: select failed: %w", err)
	}
	return &c, nil
}
