package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/billing"
	"github.com/agendai/agendai-platform/internal/clients"
	"github.com/agendai/agendai-platform/internal/conversations"
	httpmiddleware "github.com/agendai/agendai-platform/internal/http/middleware"
	"github.com/agendai/agendai-platform/internal/messaging"
	"github.com/agendai/agendai-platform/internal/pipeline"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/reminders"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	ProfessionalsHandler *professionals.Handler
	ClientsHandler       *clients.Handler
	ServicesHandler      *services.Handler
	AppointmentsHandler  *appointments.Handler
	ConversationsHandler *conversations.Handler
	PipelineHandler      *pipeline.Handler
	BillingHandler       *billing.Handler
	RemindersHandler     *reminders.Handler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Optional Redis-backed limiter in front of the WhatsApp webhook.
	WebhookRateLimiter *httpmiddleware.WebhookRateLimiter

	// Per-professional token bucket for the dashboard API. Zero disables it.
	DashboardRateLimit float64
	DashboardRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.PipelineHandler != nil {
			webhook := public
			if cfg.WebhookRateLimiter != nil {
				webhook = public.With(cfg.WebhookRateLimiter.Middleware(webhookKey))
			}
			webhook.Post("/webhook/whatsapp", cfg.PipelineHandler.HandleWebhook)
		}
		if cfg.BillingHandler != nil {
			public.Post("/stripe/webhook", cfg.BillingHandler.Webhook)
		}
	})

	// Dashboard API, scoped to the authenticated professional
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.RequireProfessional)
		if cfg.DashboardRateLimit > 0 {
			authed.Use(httpmiddleware.RateLimit(cfg.DashboardRateLimit, cfg.DashboardRateBurst))
		}

		if cfg.ProfessionalsHandler != nil {
			authed.Get("/profile", cfg.ProfessionalsHandler.GetProfile)
			authed.Patch("/profile", cfg.ProfessionalsHandler.UpdateProfile)
			authed.Get("/settings", cfg.ProfessionalsHandler.GetSettings)
			authed.Put("/settings", cfg.ProfessionalsHandler.PutSettings)
		}

		if cfg.ClientsHandler != nil {
			authed.Route("/clients", func(r chi.Router) {
				r.Post("/", cfg.ClientsHandler.Create)
				r.Get("/", cfg.ClientsHandler.List)
			})
		}

		if cfg.ServicesHandler != nil {
			authed.Route("/services", func(r chi.Router) {
				r.Post("/", cfg.ServicesHandler.Create)
				r.Get("/", cfg.ServicesHandler.List)
				r.Get("/{id}", cfg.ServicesHandler.Get)
				r.Patch("/{id}", cfg.ServicesHandler.Update)
				r.Delete("/{id}", cfg.ServicesHandler.Delete)
			})
		}

		if cfg.AppointmentsHandler != nil {
			authed.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.AppointmentsHandler.Create)
				r.Get("/", cfg.AppointmentsHandler.List)
				r.Get("/available-slots", cfg.AppointmentsHandler.AvailableSlots)
				r.Get("/{id}", cfg.AppointmentsHandler.Get)
				r.Patch("/{id}", cfg.AppointmentsHandler.Update)
				r.Delete("/{id}", cfg.AppointmentsHandler.Cancel)
				r.Post("/{id}/confirm", cfg.AppointmentsHandler.Confirm)
				r.Post("/{id}/cancel", cfg.AppointmentsHandler.Cancel)
			})
		}

		if cfg.ConversationsHandler != nil {
			authed.Route("/conversations", func(r chi.Router) {
				r.Get("/", cfg.ConversationsHandler.List)
				r.Get("/{id}", cfg.ConversationsHandler.Get)
				r.Post("/{id}/close", cfg.ConversationsHandler.Close)
			})
			authed.Post("/whatsapp/send", cfg.ConversationsHandler.Send)
		}

		if cfg.BillingHandler != nil {
			authed.Post("/stripe/create-checkout-session", cfg.BillingHandler.CreateCheckoutSession)
			authed.Post("/stripe/create-portal-session", cfg.BillingHandler.CreatePortalSession)
		}

		if cfg.RemindersHandler != nil {
			authed.Post("/reminders/run", cfg.RemindersHandler.Run)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// webhookKey buckets webhook rate limiting by the sending phone so one chatty
// client cannot drown the webhook for everyone. Twilio posts from a small
// shared IP set, so keying by remote address would make the bucket global.
func webhookKey(r *http.Request) string {
	if err := r.ParseForm(); err == nil {
		if from := messaging.NormalizePhone(r.PostFormValue("From")); from != "" {
			return from
		}
	}
	return r.RemoteAddr
}
