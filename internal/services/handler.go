package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Handler handles HTTP requests for services
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new services handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /services requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ProfessionalID = professionalID

	svc, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationErr(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create service", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}

	h.logger.Info("service created", "id", svc.ID, "professional_id", professionalID)
	writeJSON(w, http.StatusCreated, svc)
}

// List handles GET /services requests. ?active=true filters to bookable rows.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.repo.ListByProfessional(r.Context(), professionalID, activeOnly)
	if err != nil {
		h.logger.Error("failed to list services", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Service{}
	}

	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /services/{id} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	svc, err := h.repo.GetByID(r.Context(), professionalID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get service", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to get service", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, svc)
}

// Update handles PATCH /services/{id} requests
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req UpdateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	svc, err := h.repo.Update(r.Context(), professionalID, chi.URLParam(r, "id"), &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		if isValidationErr(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to update service", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to update service", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, svc)
}

// Delete handles DELETE /services/{id} requests. The row is deactivated so
// past appointments keep their service reference.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	if err := h.repo.Delete(r.Context(), professionalID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete service", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to delete service", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidationErr(err error) bool {
	return errors.Is(err, ErrInvalidName) || errors.Is(err, ErrInvalidDuration) || errors.Is(err, ErrInvalidPrice)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
