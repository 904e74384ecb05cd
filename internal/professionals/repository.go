package professionals

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the interface for professional storage
type Repository interface {
	GetByID(ctx context.Context, id string) (*Professional, error)
	GetByWhatsAppNumber(ctx context.Context, number string) (*Professional, error)
	UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) (*Professional, error)
	GetSettings(ctx context.Context, id string) (*Settings, error)
	PutSettings(ctx context.Context, settings *Settings) error
	ListAll(ctx context.Context) ([]*Professional, error)

	// Billing mirror fields, written by the Stripe webhook handler.
	SetStripeCustomer(ctx context.Context, id, customerID string) error
	SetSubscription(ctx context.Context, id, subscriptionID, tier, status string) error
	GetByStripeCustomer(ctx context.Context, customerID string) (*Professional, error)
}

// InMemoryRepository is an in-memory Repository used by handler tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*Professional
	settings map[string]*Settings
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:     make(map[string]*Professional),
		settings: make(map[string]*Settings),
	}
}

// Seed inserts a professional directly, for tests.
func (r *InMemoryRepository) Seed(p *Professional) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
}

// SeedSettings inserts settings directly, for tests.
func (r *InMemoryRepository) SeedSettings(s *Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settings[s.ProfessionalID] = &cp
}

// GetByID retrieves a professional by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByWhatsAppNumber retrieves a professional by their WhatsApp number
func (r *InMemoryRepository) GetByWhatsAppNumber(ctx context.Context, number string) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if p.WhatsAppNumber == number {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListAll returns every professional.
func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pros := make([]*Professional, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		pros = append(pros, &cp)
	}
	sort.Slice(pros, func(i, j int) bool { return pros[i].ID < pros[j].ID })
	return pros, nil
}

// UpdateProfile applies non-nil fields from the request.
func (r *InMemoryRepository) UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) (*Professional, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.WhatsAppNumber != nil {
		p.WhatsAppNumber = *req.WhatsAppNumber
	}
	cp := *p
	return &cp, nil
}

// GetSettings returns the settings row for a professional.
func (r *InMemoryRepository) GetSettings(ctx context.Context, id string) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[id]
	if !ok {
		return nil, ErrSettingsNotFound
	}
	cp := *s
	return &cp, nil
}

// PutSettings upserts the settings row.
func (r *InMemoryRepository) PutSettings(ctx context.Context, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *settings
	r.settings[settings.ProfessionalID] = &cp
	return nil
}

// SetStripeCustomer stores the provider customer id.
func (r *InMemoryRepository) SetStripeCustomer(ctx context.Context, id, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.StripeCustomerID = customerID
	return nil
}

// SetSubscription mirrors subscription state from the billing provider.
func (r *InMemoryRepository) SetSubscription(ctx context.Context, id, subscriptionID, tier, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.StripeSubscriptionID = subscriptionID
	p.SubscriptionTier = tier
	p.SubscriptionStatus = status
	return nil
}

// GetByStripeCustomer looks up a professional by provider customer id.
func (r *InMemoryRepository) GetByStripeCustomer(ctx context.Context, customerID string) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if p.StripeCustomerID == customerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
