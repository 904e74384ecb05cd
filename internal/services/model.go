package services

import (
	"strings"
	"time"
)

// Service is a bookable offering (duration drives slot math).
type Service struct {
	ID              string    `json:"id"`
	ProfessionalID  string    `json:"professional_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Color           string    `json:"color"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration returns the service length as a time.Duration.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// CreateServiceRequest represents the request body for creating a service
type CreateServiceRequest struct {
	ProfessionalID  string `json:"-"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Color           string `json:"color"`
}

// Validate validates the create service request
func (r *CreateServiceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.DurationMinutes < 5 || r.DurationMinutes > 480 {
		return ErrInvalidDuration
	}
	if r.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// UpdateServiceRequest is the PATCH /services/{id} body.
type UpdateServiceRequest struct {
	Name            *string `json:"name"`
	DurationMinutes *int    `json:"duration_minutes"`
	PriceCents      *int64  `json:"price_cents"`
	Color           *string `json:"color"`
	Active          *bool   `json:"active"`
}

// Validate rejects out-of-range updates.
func (r *UpdateServiceRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	if r.DurationMinutes != nil && (*r.DurationMinutes < 5 || *r.DurationMinutes > 480) {
		return ErrInvalidDuration
	}
	if r.PriceCents != nil && *r.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// MatchByName finds a service by case-insensitive name, used when the AI
// extractor names a service in free text.
func MatchByName(list []*Service, name string) *Service {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	for _, s := range list {
		if strings.ToLower(s.Name) == name {
			return s
		}
	}
	// Fall back to substring match so "corte de cabelo feminino" still hits "corte".
	for _, s := range list {
		lower := strings.ToLower(s.Name)
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return s
		}
	}
	return nil
}
