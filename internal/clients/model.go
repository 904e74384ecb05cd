package clients

import (
	"strings"
	"time"
)

// Client is an end customer booking through WhatsApp.
type Client struct {
	ID             string    `json:"id"`
	ProfessionalID string    `json:"professional_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateClientRequest represents the request body for creating a client
type CreateClientRequest struct {
	ProfessionalID string `json:"-"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Notes          string `json:"notes"`
}

// Validate validates the create client request
func (r *CreateClientRequest) Validate() error {
	if strings.TrimSpace(r.ProfessionalID) == "" {
		return ErrMissingProfessional
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrMissingPhone
	}
	return nil
}
