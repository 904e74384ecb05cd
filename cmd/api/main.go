package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/agendai/agendai-platform/internal/ai"
	"github.com/agendai/agendai-platform/internal/api/router"
	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/billing"
	"github.com/agendai/agendai-platform/internal/clients"
	appconfig "github.com/agendai/agendai-platform/internal/config"
	"github.com/agendai/agendai-platform/internal/conversations"
	httpmiddleware "github.com/agendai/agendai-platform/internal/http/middleware"
	"github.com/agendai/agendai-platform/internal/messaging"
	"github.com/agendai/agendai-platform/internal/observability/metrics"
	"github.com/agendai/agendai-platform/internal/pipeline"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/reminders"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agendai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Redis (webhook dedupe and rate limiting)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, webhook dedupe disabled", "error", err)
			rdb = nil
		}
	}

	// Repositories
	prosRepo := professionals.NewPostgresRepository(pool)
	clientsRepo := clients.NewPostgresRepository(pool)
	servicesRepo := services.NewPostgresRepository(pool)
	apptsRepo := appointments.NewPostgresRepository(pool)
	availRepo := appointments.NewPostgresAvailabilityRepository(pool)
	convsRepo := conversations.NewPostgresRepository(pool)
	eventsRepo := billing.NewPostgresEventRepository(pool)
	reminderLog := reminders.NewPostgresLogRepository(pool)

	// Outbound WhatsApp via Twilio
	sender := messaging.NewSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)

	// OpenAI assistant and Whisper transcription
	oai := openai.NewClient(cfg.OpenAIAPIKey)
	assistant := ai.NewAssistant(oai, cfg.OpenAIModel, cfg.OpenAIMaxTokens, cfg.OpenAIRequestTimeout, logger)
	transcriber := ai.NewTranscriber(oai, &http.Client{Timeout: 30 * time.Second},
		cfg.TwilioAccountSID, cfg.TwilioAuthToken, logger)

	// Metrics
	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	// Webhook pipeline
	pipelineHandler := pipeline.NewHandler(
		pipeline.Config{
			TwilioAuthToken: cfg.TwilioAuthToken,
			WebhookURL:      cfg.TwilioWebhookURL,
		},
		prosRepo, clientsRepo, convsRepo, servicesRepo, apptsRepo, availRepo,
		pipeline.NewPgBooker(pool),
		assistant, transcriber, sender, rdb, pipelineMetrics, logger,
	)

	// Billing
	billingHandler := billing.NewHandler(billing.Config{
		SecretKey:          cfg.StripeSecretKey,
		WebhookSecret:      cfg.StripeWebhookSecret,
		PriceBasic:         cfg.StripePriceBasic,
		PricePro:           cfg.StripePricePro,
		CheckoutSuccessURL: cfg.CheckoutSuccessURL,
		CheckoutCancelURL:  cfg.CheckoutCancelURL,
		PortalReturnURL:    cfg.BillingPortalReturnURL,
	}, prosRepo, eventsRepo, logger)

	// Reminder sweep, exposed for manual runs
	sweeper := reminders.NewSweeper(prosRepo, apptsRepo, clientsRepo, servicesRepo,
		reminderLog, sender, pipelineMetrics, logger)

	var webhookLimiter *httpmiddleware.WebhookRateLimiter
	if rdb != nil && cfg.WebhookRateLimit > 0 {
		webhookLimiter = httpmiddleware.NewWebhookRateLimiter(rdb, cfg.WebhookRateLimit, cfg.WebhookRateWindow, logger)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:               logger,
		ProfessionalsHandler: professionals.NewHandler(prosRepo, logger),
		ClientsHandler:       clients.NewHandler(clientsRepo, logger),
		ServicesHandler:      services.NewHandler(servicesRepo, logger),
		AppointmentsHandler:  appointments.NewHandler(apptsRepo, availRepo, servicesRepo, clientsRepo, prosRepo, sender, logger),
		ConversationsHandler: conversations.NewHandler(convsRepo, sender, logger),
		PipelineHandler:      pipelineHandler,
		BillingHandler:       billingHandler,
		RemindersHandler:     reminders.NewHandler(sweeper, logger),
		MetricsHandler:       promhttp.Handler(),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		WebhookRateLimiter:   webhookLimiter,
		DashboardRateLimit:   cfg.DashboardRateLimit,
		DashboardRateBurst:   cfg.DashboardRateBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
