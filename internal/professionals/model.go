package professionals

import (
	"strings"
	"time"
)

// Subscription statuses mirrored from the billing provider.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionPastDue  = "past_due"
)

// Professional is the paying account holder offering services.
type Professional struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Phone                string     `json:"phone"`
	WhatsAppNumber       string     `json:"whatsapp_number"`
	StripeCustomerID     string     `json:"-"`
	StripeSubscriptionID string     `json:"-"`
	SubscriptionTier     string     `json:"subscription_tier"`
	SubscriptionStatus   string     `json:"subscription_status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Settings holds per-professional assistant configuration.
type Settings struct {
	ProfessionalID    string `json:"professional_id"`
	BusinessName      string `json:"business_name"`
	AssistantName     string `json:"assistant_name"`
	AssistantTone     string `json:"assistant_tone"`
	Timezone          string `json:"timezone"`
	ReminderLeadHours int    `json:"reminder_lead_hours"`
	WorkdayStart      string `json:"workday_start"`
	WorkdayEnd        string `json:"workday_end"`
}

// UpdateProfileRequest is the PATCH /profile body.
type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	WhatsAppNumber *string `json:"whatsapp_number"`
}

// Validate rejects updates that would blank required fields.
func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	if r.Email != nil && !strings.Contains(*r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Validate checks settings bounds before persisting.
func (s *Settings) Validate() error {
	if s.ReminderLeadHours < 1 || s.ReminderLeadHours > 168 {
		return ErrInvalidLeadHours
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}
