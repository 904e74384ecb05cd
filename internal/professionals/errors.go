package professionals

import "errors"

var (
	// ErrNotFound is returned when no professional matches the lookup.
	ErrNotFound = errors.New("professional not found")

	// ErrSettingsNotFound is returned when a professional has no settings row.
	ErrSettingsNotFound = errors.New("professional settings not found")

	// ErrInvalidName is returned when a profile update blanks the name.
	ErrInvalidName = errors.New("name cannot be empty")

	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidLeadHours is returned when reminder lead time is out of range.
	ErrInvalidLeadHours = errors.New("reminder lead hours must be between 1 and 168")

	// ErrInvalidTimezone is returned for unknown IANA timezone names.
	ErrInvalidTimezone = errors.New("invalid timezone")
)
