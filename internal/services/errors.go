package services

import "errors"

var (
	// ErrInvalidName is returned when the service name is blank.
	ErrInvalidName = errors.New("service name is required")

	// ErrInvalidDuration is returned when duration is out of range.
	ErrInvalidDuration = errors.New("duration must be between 5 and 480 minutes")

	// ErrInvalidPrice is returned for negative prices.
	ErrInvalidPrice = errors.New("price cannot be negative")

	// ErrNotFound is returned when a service is not found.
	ErrNotFound = errors.New("service not found")
)
