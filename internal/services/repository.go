package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for service storage
type Repository interface {
	Create(ctx context.Context, req *CreateServiceRequest) (*Service, error)
	GetByID(ctx context.Context, professionalID, id string) (*Service, error)
	Update(ctx context.Context, professionalID, id string, req *UpdateServiceRequest) (*Service, error)
	Delete(ctx context.Context, professionalID, id string) error
	ListByProfessional(ctx context.Context, professionalID string, activeOnly bool) ([]*Service, error)
}

// InMemoryRepository is an in-memory Repository used by handler tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	services map[string]*Service
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{services: make(map[string]*Service)}
}

// Create creates a new service in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	svc := &Service{
		ID:              uuid.New().String(),
		ProfessionalID:  req.ProfessionalID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Color:           req.Color,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
	r.mu.Lock()
	r.services[svc.ID] = svc
	r.mu.Unlock()
	return svc, nil
}

// GetByID retrieves a service scoped to the professional.
func (r *InMemoryRepository) GetByID(ctx context.Context, professionalID, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok || s.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Update applies non-nil fields.
func (r *InMemoryRepository) Update(ctx context.Context, professionalID, id string, req *UpdateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok || s.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	if req.Name != nil {
		s.Name = *req.Name
	}
	if req.DurationMinutes != nil {
		s.DurationMinutes = *req.DurationMinutes
	}
	if req.PriceCents != nil {
		s.PriceCents = *req.PriceCents
	}
	if req.Color != nil {
		s.Color = *req.Color
	}
	if req.Active != nil {
		s.Active = *req.Active
	}
	cp := *s
	return &cp, nil
}

// Delete deactivates a service (rows referenced by appointments stay).
func (r *InMemoryRepository) Delete(ctx context.Context, professionalID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok || s.ProfessionalID != professionalID {
		return ErrNotFound
	}
	s.Active = false
	return nil
}

// ListByProfessional returns services for a professional.
func (r *InMemoryRepository) ListByProfessional(ctx context.Context, professionalID string, activeOnly bool) ([]*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Service
	for _, s := range r.services {
		if s.ProfessionalID != professionalID {
			continue
		}
		if activeOnly && !s.Active {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}
