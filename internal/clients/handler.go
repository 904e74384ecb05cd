package clients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Handler handles HTTP requests for clients
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new clients handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /clients requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ProfessionalID = professionalID

	client, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingPhone) || errors.Is(err, ErrMissingProfessional) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create client", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create client", http.StatusInternalServerError)
		return
	}

	h.logger.Info("client created", "id", client.ID, "professional_id", professionalID)
	writeJSON(w, http.StatusCreated, client)
}

// List handles GET /clients requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	clients, err := h.repo.ListByProfessional(r.Context(), professionalID)
	if err != nil {
		h.logger.Error("failed to list clients", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to list clients", http.StatusInternalServerError)
		return
	}
	if clients == nil {
		clients = []*Client{}
	}

	writeJSON(w, http.StatusOK, clients)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
