package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Sender delivers an outbound WhatsApp message. Satisfied by the messaging
// sender.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Handler handles HTTP requests for conversations
type Handler struct {
	repo   Repository
	sender Sender
	logger *logging.Logger
}

// NewHandler creates a new conversations handler.
func NewHandler(repo Repository, sender Sender, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, sender: sender, logger: logger}
}

// List handles GET /conversations requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	convs, err := h.repo.ListByProfessional(r.Context(), professionalID)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	if convs == nil {
		convs = []*Conversation{}
	}

	writeJSON(w, http.StatusOK, convs)
}

// Get handles GET /conversations/{id} requests, returning the conversation
// with its full message history.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	conv, err := h.repo.GetByID(r.Context(), professionalID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get conversation", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to get conversation", http.StatusInternalServerError)
		return
	}

	msgs, err := h.repo.ListMessages(r.Context(), conv.ID)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "conversation_id", conv.ID)
		http.Error(w, "failed to get conversation", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*Message{}
	}

	writeJSON(w, http.StatusOK, &ConversationDetail{Conversation: *conv, Messages: msgs})
}

// Close handles POST /conversations/{id}/close requests
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	conv, err := h.repo.Close(r.Context(), professionalID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to close conversation", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to close conversation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// SendMessageRequest is the POST /whatsapp/send body.
type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send handles POST /whatsapp/send requests: a manual outbound message from
// the dashboard, persisted to the client's active conversation.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "to and message are required", http.StatusBadRequest)
		return
	}

	conv, err := h.repo.LookupOrCreateActive(r.Context(), professionalID, req.To, "")
	if err != nil {
		h.logger.Error("failed to resolve conversation", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	msg, err := h.repo.AppendMessage(r.Context(), &AppendMessageRequest{
		ConversationID: conv.ID,
		Content:        req.Message,
		FromClient:     false,
		MessageType:    MessageTypeText,
	})
	if err != nil {
		h.logger.Error("failed to persist outbound message", "error", err, "conversation_id", conv.ID)
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	if err := h.sender.Send(r.Context(), req.To, req.Message); err != nil {
		h.logger.Error("failed to deliver outbound message", "error", err, "conversation_id", conv.ID)
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
