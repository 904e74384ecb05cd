package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateEvent marks a provider event that was already processed.
var ErrDuplicateEvent = errors.New("billing: duplicate provider event")

// Event is a received billing-provider webhook event, recorded before
// processing so replays become no-ops.
type Event struct {
	ProviderEventID string
	EventType       string
	Payload         []byte
}

// EventRepository records processed provider events.
type EventRepository interface {
	// Insert records the event, returning ErrDuplicateEvent when the
	// provider event id was seen before.
	Insert(ctx context.Context, evt *Event) error
	// Delete removes a recorded event whose apply step failed, so the
	// provider's retry is processed instead of acked as a duplicate.
	Delete(ctx context.Context, providerEventID string) error
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresEventRepository stores events in the billing_events table.
type PostgresEventRepository struct {
	db db
}

// NewPostgresEventRepository initializes the event store.
func NewPostgresEventRepository(db db) *PostgresEventRepository {
	if db == nil {
		panic("billing: db required")
	}
	return &PostgresEventRepository{db: db}
}

// Insert implements EventRepository.
func (r *PostgresEventRepository) Insert(ctx context.Context, evt *Event) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO billing_events (provider_event_id, event_type, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_event_id) DO NOTHING
	`, evt.ProviderEventID, evt.EventType, evt.Payload)
	if err != nil {
		return fmt.Errorf("billing: insert event failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

// Delete implements EventRepository.
func (r *PostgresEventRepository) Delete(ctx context.Context, providerEventID string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM billing_events WHERE provider_event_id = $1`, providerEventID); err != nil {
		return fmt.Errorf("billing: delete event failed: %w", err)
	}
	return nil
}

// InMemoryEventRepository is used by webhook tests.
type InMemoryEventRepository struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewInMemoryEventRepository creates an empty event store.
func NewInMemoryEventRepository() *InMemoryEventRepository {
	return &InMemoryEventRepository{seen: make(map[string]bool)}
}

// Insert implements EventRepository.
func (r *InMemoryEventRepository) Insert(ctx context.Context, evt *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[evt.ProviderEventID] {
		return ErrDuplicateEvent
	}
	r.seen[evt.ProviderEventID] = true
	return nil
}

// Delete implements EventRepository.
func (r *InMemoryEventRepository) Delete(ctx context.Context, providerEventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, providerEventID)
	return nil
}
