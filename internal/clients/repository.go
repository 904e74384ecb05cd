package clients

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for client storage
type Repository interface {
	Create(ctx context.Context, req *CreateClientRequest) (*Client, error)
	GetByID(ctx context.Context, professionalID, id string) (*Client, error)
	GetOrCreateByPhone(ctx context.Context, professionalID, phone, name string) (*Client, error)
	ListByProfessional(ctx context.Context, professionalID string) ([]*Client, error)
}

// InMemoryRepository is an in-memory Repository used by handler tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clients: make(map[string]*Client)}
}

// Create creates a new client in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateClientRequest) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	client := &Client{
		ID:             uuid.New().String(),
		ProfessionalID: req.ProfessionalID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Notes:          req.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()
	return client, nil
}

// GetByID retrieves a client scoped to the professional.
func (r *InMemoryRepository) GetByID(ctx context.Context, professionalID, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok || c.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// GetOrCreateByPhone finds a client by phone or creates one lazily.
func (r *InMemoryRepository) GetOrCreateByPhone(ctx context.Context, professionalID, phone, name string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.ProfessionalID == professionalID && c.Phone == phone {
			if name != "" && c.Name == "" {
				c.Name = name
			}
			cp := *c
			return &cp, nil
		}
	}
	client := &Client{
		ID:             uuid.New().String(),
		ProfessionalID: professionalID,
		Name:           name,
		Phone:          phone,
		CreatedAt:      time.Now().UTC(),
	}
	r.clients[client.ID] = client
	cp := *client
	return &cp, nil
}

// ListByProfessional returns all clients for a professional.
func (r *InMemoryRepository) ListByProfessional(ctx context.Context, professionalID string) ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Client
	for _, c := range r.clients {
		if c.ProfessionalID == professionalID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
