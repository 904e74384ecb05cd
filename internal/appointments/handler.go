package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agendai/agendai-platform/internal/clients"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	repo     Repository
	avail    AvailabilityRepository
	services services.Repository
	clients  clients.Repository
	pros     professionals.Repository
	notifier Notifier
	logger   *logging.Logger
}

// NewHandler creates a new appointments handler. notifier may be nil, which
// disables confirmation/cancellation messages.
func NewHandler(
	repo Repository,
	avail AvailabilityRepository,
	svcRepo services.Repository,
	clientRepo clients.Repository,
	proRepo professionals.Repository,
	notifier Notifier,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		avail:    avail,
		services: svcRepo,
		clients:  clientRepo,
		pros:     proRepo,
		notifier: notifier,
		logger:   logger,
	}
}

// List handles GET /appointments requests. Optional ?from and ?to bound the
// start time (RFC 3339 or YYYY-MM-DD).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from parameter", http.StatusBadRequest)
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to parameter", http.StatusBadRequest)
		return
	}

	appts, err := h.repo.ListByProfessional(r.Context(), professionalID, from, to)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}

	writeJSON(w, http.StatusOK, appts)
}

// Create handles POST /appointments requests. Status defaults to scheduled.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ProfessionalID = professionalID
	req.Source = SourceAPI

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	open, err := h.repo.ListOpenByProfessional(r.Context(), professionalID)
	if err != nil {
		h.logger.Error("failed to load open appointments", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	if HasConflict(Interval{Start: req.StartTime, End: req.EndTime}, OpenIntervals(open)) {
		http.Error(w, ErrSlotTaken.Error(), http.StatusConflict)
		return
	}

	appt, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create appointment", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	h.logger.Info("appointment created", "id", appt.ID, "professional_id", professionalID, "start", appt.StartTime)
	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /appointments/{id} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	appt, err := h.repo.GetByID(r.Context(), professionalID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get appointment", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to get appointment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// Update handles PATCH /appointments/{id} requests
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.repo.Update(r.Context(), professionalID, chi.URLParam(r, "id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidInterval), errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to update appointment", "error", err, "professional_id", professionalID)
			http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// Confirm handles POST /appointments/{id}/confirm requests. One WhatsApp
// confirmation is sent when both client and professional have phone numbers.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusConfirmed)
}

// Cancel handles POST /appointments/{id}/cancel and DELETE /appointments/{id}.
// Cancelling an already-cancelled appointment succeeds and re-attempts the
// notification.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusCancelled)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, status string) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	appt, err := h.repo.SetStatus(r.Context(), professionalID, chi.URLParam(r, "id"), status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to change appointment status", "error", err,
				"professional_id", professionalID, "status", status)
			http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		}
		return
	}

	h.notify(r, appt, status)
	writeJSON(w, http.StatusOK, appt)
}

// notify sends the status message best-effort. Failures are logged, never
// surfaced to the caller.
func (h *Handler) notify(r *http.Request, appt *Appointment, status string) {
	if h.notifier == nil {
		return
	}
	ctx := r.Context()

	client, err := h.clients.GetByID(ctx, appt.ProfessionalID, appt.ClientID)
	if err != nil || client.Phone == "" {
		return
	}
	pro, err := h.pros.GetByID(ctx, appt.ProfessionalID)
	if err != nil || pro.WhatsAppNumber == "" {
		return
	}

	name := pro.Name
	if settings, err := h.pros.GetSettings(ctx, appt.ProfessionalID); err == nil && settings.BusinessName != "" {
		name = settings.BusinessName
	}

	var body string
	switch status {
	case StatusConfirmed:
		body = confirmationText(name, appt.StartTime)
	case StatusCancelled:
		body = cancellationText(name, appt.StartTime)
	default:
		return
	}

	if err := h.notifier.Send(ctx, client.Phone, body); err != nil {
		h.logger.Error("failed to send appointment notification", "error", err,
			"appointment_id", appt.ID, "status", status)
	}
}

// AvailableSlots handles GET /appointments/available-slots requests.
// Query params: date=YYYY-MM-DD (required), service_id (required).
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	serviceID := r.URL.Query().Get("service_id")
	if serviceID == "" {
		http.Error(w, "service_id is required", http.StatusBadRequest)
		return
	}

	loc := time.UTC
	if settings, err := h.pros.GetSettings(r.Context(), professionalID); err == nil && settings.Timezone != "" {
		if l, err := time.LoadLocation(settings.Timezone); err == nil {
			loc = l
		}
	}

	day, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	svc, err := h.services.GetByID(r.Context(), professionalID, serviceID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load service for slots", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	avail, err := h.avail.ListByProfessional(r.Context(), professionalID)
	if err != nil {
		h.logger.Error("failed to load availabilities", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	open, err := h.repo.ListOpenByProfessional(r.Context(), professionalID)
	if err != nil {
		h.logger.Error("failed to load open appointments", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	slots := AvailableSlots(day, avail, OpenIntervals(open), svc.Duration())
	if slots == nil {
		slots = []Interval{}
	}

	writeJSON(w, http.StatusOK, slots)
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
