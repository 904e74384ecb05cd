package clients

import "errors"

var (
	// ErrMissingProfessional is returned when the owning professional is unknown.
	ErrMissingProfessional = errors.New("professional id is required")

	// ErrMissingPhone is returned when the client phone is missing.
	ErrMissingPhone = errors.New("phone is required")

	// ErrNotFound is returned when a client is not found.
	ErrNotFound = errors.New("client not found")
)
