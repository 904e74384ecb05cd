package conversations

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for conversation and message storage.
type Repository interface {
	// LookupOrCreateActive returns the single active conversation for the
	// (professional, phone) pair, creating one when none exists.
	LookupOrCreateActive(ctx context.Context, professionalID, clientPhone, clientName string) (*Conversation, error)
	GetByID(ctx context.Context, professionalID, id string) (*Conversation, error)
	ListByProfessional(ctx context.Context, professionalID string) ([]*Conversation, error)
	Close(ctx context.Context, professionalID, id string) (*Conversation, error)
	LinkAppointment(ctx context.Context, conversationID, appointmentID string) error
	AppendMessage(ctx context.Context, req *AppendMessageRequest) (*Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
}

// InMemoryRepository is an in-memory Repository used by handler and
// pipeline tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	convs    map[string]*Conversation
	messages map[string][]*Message
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		convs:    make(map[string]*Conversation),
		messages: make(map[string][]*Message),
	}
}

// LookupOrCreateActive finds the active conversation for the pair or starts one.
func (r *InMemoryRepository) LookupOrCreateActive(ctx context.Context, professionalID, clientPhone, clientName string) (*Conversation, error) {
	if strings.TrimSpace(clientPhone) == "" {
		return nil, ErrMissingPhone
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.ProfessionalID == professionalID && c.ClientPhone == clientPhone && c.Status == StatusActive {
			if clientName != "" && c.ClientName == "" {
				c.ClientName = clientName
			}
			cp := *c
			return &cp, nil
		}
	}
	now := time.Now().UTC()
	c := &Conversation{
		ID:             uuid.New().String(),
		ProfessionalID: professionalID,
		ClientPhone:    clientPhone,
		ClientName:     clientName,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.convs[c.ID] = c
	cp := *c
	return &cp, nil
}

// GetByID retrieves a conversation scoped to the professional.
func (r *InMemoryRepository) GetByID(ctx context.Context, professionalID, id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[id]
	if !ok || c.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListByProfessional returns conversations newest-first.
func (r *InMemoryRepository) ListByProfessional(ctx context.Context, professionalID string) ([]*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Conversation
	for _, c := range r.convs {
		if c.ProfessionalID == professionalID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Close marks the conversation closed. Closing twice is a no-op.
func (r *InMemoryRepository) Close(ctx context.Context, professionalID, id string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok || c.ProfessionalID != professionalID {
		return nil, ErrNotFound
	}
	c.Status = StatusClosed
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

// LinkAppointment attaches an appointment to the conversation.
func (r *InMemoryRepository) LinkAppointment(ctx context.Context, conversationID, appointmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	c.AppointmentID = appointmentID
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendMessage stores a new message on an active conversation.
func (r *InMemoryRepository) AppendMessage(ctx context.Context, req *AppendMessageRequest) (*Message, error) {
	if strings.TrimSpace(req.Content) == "" && req.MediaURL == "" {
		return nil, ErrEmptyMessage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[req.ConversationID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Status != StatusActive {
		return nil, ErrClosed
	}
	msgType := req.MessageType
	if msgType == "" {
		msgType = MessageTypeText
	}
	m := &Message{
		ID:             uuid.New().String(),
		ConversationID: req.ConversationID,
		Content:        req.Content,
		FromClient:     req.FromClient,
		MessageType:    msgType,
		Transcription:  req.Transcription,
		MediaURL:       req.MediaURL,
		CreatedAt:      time.Now().UTC(),
	}
	r.messages[req.ConversationID] = append(r.messages[req.ConversationID], m)
	c.UpdatedAt = m.CreatedAt
	cp := *m
	return &cp, nil
}

// ListMessages returns the conversation's messages oldest-first.
func (r *InMemoryRepository) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[conversationID]
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
