package reminders

import (
	"encoding/json"
	"net/http"

	"github.com/agendai/agendai-platform/pkg/logging"
)

// Handler exposes the sweep over HTTP so operators can trigger a run outside
// the worker schedule.
type Handler struct {
	sweeper *Sweeper
	logger  *logging.Logger
}

// NewHandler creates the reminders handler.
func NewHandler(sweeper *Sweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sweeper: sweeper, logger: logger}
}

// Run handles POST /reminders/run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Run(r.Context())
	if err != nil {
		h.logger.Error("manual reminder sweep failed", "error", err)
		http.Error(w, "reminder sweep failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(report)
}
