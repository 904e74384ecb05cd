package appointments

import (
	"time"
)

// Appointment statuses. Cancelled and completed are terminal.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Sources record who created the row.
const (
	SourceAPI      = "api"
	SourceWhatsApp = "whatsapp"
)

// Appointment is a booked interval for a professional's client.
type Appointment struct {
	ID             string    `json:"id"`
	ProfessionalID string    `json:"professional_id"`
	ClientID       string    `json:"client_id"`
	ServiceID      string    `json:"service_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	Source         string    `json:"source"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Interval returns the appointment's booked interval.
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// Open reports whether the appointment still occupies its slot.
func (a *Appointment) Open() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a status change is allowed: scheduled to
// confirmed to completed, with cancel allowed from scheduled or confirmed.
// Re-cancelling a cancelled row is allowed so cancel stays idempotent.
func CanTransition(from, to string) bool {
	switch to {
	case StatusConfirmed:
		return from == StatusScheduled || from == StatusConfirmed
	case StatusCompleted:
		return from == StatusConfirmed
	case StatusCancelled:
		return from == StatusScheduled || from == StatusConfirmed || from == StatusCancelled
	case StatusScheduled:
		return from == StatusScheduled
	}
	return false
}

// CreateAppointmentRequest is the POST /appointments body.
type CreateAppointmentRequest struct {
	ProfessionalID string    `json:"-"`
	ClientID       string    `json:"client_id"`
	ServiceID      string    `json:"service_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	Source         string    `json:"-"`
	ConversationID string    `json:"-"`
}

// Validate checks required fields and defaults status to scheduled.
func (r *CreateAppointmentRequest) Validate() error {
	if r.ClientID == "" {
		return ErrMissingClient
	}
	if r.ServiceID == "" {
		return ErrMissingService
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrInvalidInterval
	}
	if r.Status == "" {
		r.Status = StatusScheduled
	}
	if !ValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	if r.Source == "" {
		r.Source = SourceAPI
	}
	return nil
}

// UpdateAppointmentRequest is the PATCH /appointments/{id} body.
type UpdateAppointmentRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    *string    `json:"status"`
	Notes     *string    `json:"notes"`
	ServiceID *string    `json:"service_id"`
}

// Validate rejects unknown statuses and inverted intervals.
func (r *UpdateAppointmentRequest) Validate() error {
	if r.Status != nil && !ValidStatus(*r.Status) {
		return ErrInvalidStatus
	}
	if r.StartTime != nil && r.EndTime != nil && !r.EndTime.After(*r.StartTime) {
		return ErrInvalidInterval
	}
	return nil
}

// Availability is a recurring weekly working window. Minutes are minute-of-day
// in the professional's timezone.
type Availability struct {
	ID             string `json:"id"`
	ProfessionalID string `json:"professional_id"`
	Weekday        int    `json:"weekday"`
	StartMinute    int    `json:"start_minute"`
	EndMinute      int    `json:"end_minute"`
}
