package appointments

import "errors"

var (
	// ErrNotFound is returned when an appointment doesn't exist for the caller.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInterval is returned when end is not after start.
	ErrInvalidInterval = errors.New("appointment end must be after start")

	// ErrMissingClient is returned when the client reference is absent.
	ErrMissingClient = errors.New("client id is required")

	// ErrMissingService is returned when the service reference is absent.
	ErrMissingService = errors.New("service id is required")

	// ErrSlotTaken is returned when the requested interval conflicts with an
	// open appointment.
	ErrSlotTaken = errors.New("requested slot conflicts with an existing appointment")
)
