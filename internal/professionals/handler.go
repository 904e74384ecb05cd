package professionals

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Handler handles HTTP requests for the professional's own profile and settings
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new professionals handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// GetProfile handles GET /profile requests
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	pro, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load profile", "error", err, "professional_id", id)
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, pro)
}

// UpdateProfile handles PATCH /profile requests
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pro, err := h.repo.UpdateProfile(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "professional not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidEmail):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to update profile", "error", err, "professional_id", id)
			http.Error(w, "failed to update profile", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("profile updated", "professional_id", id)
	writeJSON(w, http.StatusOK, pro)
}

// GetSettings handles GET /settings requests
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	settings, err := h.repo.GetSettings(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			http.Error(w, "settings not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load settings", "error", err, "professional_id", id)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /settings requests
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	settings.ProfessionalID = id

	if err := h.repo.PutSettings(r.Context(), &settings); err != nil {
		switch {
		case errors.Is(err, ErrInvalidLeadHours), errors.Is(err, ErrInvalidTimezone):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to save settings", "error", err, "professional_id", id)
			http.Error(w, "failed to save settings", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("settings saved", "professional_id", id)
	writeJSON(w, http.StatusOK, &settings)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
