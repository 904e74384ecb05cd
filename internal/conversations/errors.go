package conversations

import "errors"

var (
	// ErrNotFound is returned when a conversation doesn't exist for the caller.
	ErrNotFound = errors.New("conversation not found")

	// ErrClosed is returned when appending to a closed conversation.
	ErrClosed = errors.New("conversation is closed")

	// ErrMissingPhone is returned when the client phone is absent.
	ErrMissingPhone = errors.New("client phone is required")

	// ErrEmptyMessage is returned for a blank outbound message body.
	ErrEmptyMessage = errors.New("message content is required")
)
