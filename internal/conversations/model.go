package conversations

import "time"

// Conversation statuses.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeVoice = "voice"
)

// Conversation is a WhatsApp thread between a professional and a client
// phone. At most one active conversation exists per (professional, phone)
// pair; the database enforces this with a partial unique index.
type Conversation struct {
	ID             string    `json:"id"`
	ProfessionalID string    `json:"professional_id"`
	ClientPhone    string    `json:"client_phone"`
	ClientName     string    `json:"client_name,omitempty"`
	Status         string    `json:"status"`
	AppointmentID  string    `json:"appointment_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is one utterance in a conversation. Rows are append-only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	FromClient     bool      `json:"from_client"`
	MessageType    string    `json:"message_type"`
	Transcription  string    `json:"transcription,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendMessageRequest carries one new message for a conversation.
type AppendMessageRequest struct {
	ConversationID string
	Content        string
	FromClient     bool
	MessageType    string
	Transcription  string
	MediaURL       string
}

// ConversationDetail is the GET /conversations/{id} response.
type ConversationDetail struct {
	Conversation
	Messages []*Message `json:"messages"`
}
