package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment storage
type Repository interface {
	Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error)
	GetByID(ctx context.Context, professionalID, id string) (*Appointment, error)
	Update(ctx context.Context, professionalID, id string, req *UpdateAppointmentRequest) (*Appointment, error)
	SetStatus(ctx context.Context, professionalID, id, status string) (*Appointment, error)
	ListByProfessional(ctx context.Context, professionalID string, from, to time.Time) ([]*Appointment, error)
	ListOpenByProfessional(ctx context.Context, professionalID string) ([]*Appointment, error)
}

// AvailabilityRepository reads the recurring weekly working windows.
type AvailabilityRepository interface {
	ListByProfessional(ctx context.Context, professionalID string) ([]Availability, error)
}

// InMemoryRepository is an in-memory Repository used by handler and
// pipeline tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	appts map[string]*Appointment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{appts: make(map[string]*Appointment)}
}

// Create inserts a new appointment.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &Appointment{
		ID:             uuid.New().String(),
		ProfessionalID: req.ProfessionalID,
		ClientID:       req.ClientID,
		ServiceID:      req.ServiceID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         req.Status,
		Notes:          req.Notes,
		Source:         req.Source,
		ConversationID: req.ConversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.mu.Lock()
	r.appts[a.ID] = a
	r.mu.Unlock()
	cp := *a
	return &cp, nil
}

// GetByID retrieves an appointment scoped to the professional.
func (r *InMemoryRepository) GetByID(ctx context.Context, professionalID, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok || a.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Update applies non-nil fields.
func (r *InMemoryRepository) Update(ctx context.Context, professionalID, id string, req *UpdateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	if req.Status != nil && !CanTransition(a.Status, *req.Status) {
		return nil, ErrInvalidTransition
	}
	if req.StartTime != nil {
		a.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		a.EndTime = *req.EndTime
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if req.ServiceID != nil {
		a.ServiceID = *req.ServiceID
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

// SetStatus transitions the appointment to status.
func (r *InMemoryRepository) SetStatus(ctx context.Context, professionalID, id, status string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	if !CanTransition(a.Status, status) {
		return nil, ErrInvalidTransition
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

// ListByProfessional returns appointments in [from, to), sorted by start.
// Zero bounds mean unbounded.
func (r *InMemoryRepository) ListByProfessional(ctx context.Context, professionalID string, from, to time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.appts {
		if a.ProfessionalID != professionalID {
			continue
		}
		if !from.IsZero() && a.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && !a.StartTime.Before(to) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// ListOpenByProfessional returns scheduled and confirmed appointments.
func (r *InMemoryRepository) ListOpenByProfessional(ctx context.Context, professionalID string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.appts {
		if a.ProfessionalID == professionalID && a.Open() {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// InMemoryAvailabilityRepository holds weekly windows for tests.
type InMemoryAvailabilityRepository struct {
	mu    sync.RWMutex
	avail []Availability
}

// NewInMemoryAvailabilityRepository creates an empty availability store.
func NewInMemoryAvailabilityRepository() *InMemoryAvailabilityRepository {
	return &InMemoryAvailabilityRepository{}
}

// Seed adds a weekly window.
func (r *InMemoryAvailabilityRepository) Seed(a Availability) {
	r.mu.Lock()
	r.avail = append(r.avail, a)
	r.mu.Unlock()
}

// ListByProfessional returns the professional's weekly windows.
func (r *InMemoryAvailabilityRepository) ListByProfessional(ctx context.Context, professionalID string) ([]Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Availability
	for _, a := range r.avail {
		if a.ProfessionalID == professionalID || a.ProfessionalID == "" {
			out = append(out, a)
		}
	}
	return out, nil
}
