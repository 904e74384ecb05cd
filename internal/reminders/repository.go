package reminders

import (
	"context"
	"sync"
	"time"
)

// LogEntry records one delivered reminder. One row per appointment keeps the
// sweep idempotent across runs.
type LogEntry struct {
	AppointmentID  string    `json:"appointment_id"`
	ProfessionalID string    `json:"professional_id"`
	SentAt         time.Time `json:"sent_at"`
}

// LogRepository stores the reminder delivery log.
type LogRepository interface {
	Sent(ctx context.Context, appointmentID string) (bool, error)
	MarkSent(ctx context.Context, professionalID, appointmentID string) error
}

// InMemoryLogRepository is an in-memory LogRepository used by tests.
type InMemoryLogRepository struct {
	mu   sync.Mutex
	sent map[string]*LogEntry
}

// NewInMemoryLogRepository creates an empty log.
func NewInMemoryLogRepository() *InMemoryLogRepository {
	return &InMemoryLogRepository{sent: make(map[string]*LogEntry)}
}

// Sent reports whether a reminder for the appointment was already delivered.
func (r *InMemoryLogRepository) Sent(ctx context.Context, appointmentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sent[appointmentID]
	return ok, nil
}

// MarkSent records a delivery, failing with ErrAlreadySent on repeats.
func (r *InMemoryLogRepository) MarkSent(ctx context.Context, professionalID, appointmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sent[appointmentID]; ok {
		return ErrAlreadySent
	}
	r.sent[appointmentID] = &LogEntry{
		AppointmentID:  appointmentID,
		ProfessionalID: professionalID,
		SentAt:         time.Now().UTC(),
	}
	return nil
}
