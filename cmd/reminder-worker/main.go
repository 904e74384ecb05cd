package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/clients"
	appconfig "github.com/agendai/agendai-platform/internal/config"
	"github.com/agendai/agendai-platform/internal/messaging"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/reminders"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agendai reminder worker", "env", cfg.Env, "interval", cfg.ReminderSweepInterval)

	ctx := context.Background()

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

	sender := messaging.NewSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)
	sweeper := reminders.NewSweeper(
		professionals.NewPostgresRepository(pool),
		appointments.NewPostgresRepository(pool),
		clients.NewPostgresRepository(pool),
		services.NewPostgresRepository(pool),
		reminders.NewPostgresLogRepository(pool),
		sender,
		nil,
		logger,
	)

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := sweeper.Run(runCtx); err != nil {
			logger.Error("reminder sweep failed", "error", err)
		}
	}

	c := cron.New()
	spec := "@every " + cfg.ReminderSweepInterval.String()
	if _, err := c.AddFunc(spec, run); err != nil {
		logger.Error("invalid sweep schedule", "error", err, "spec", spec)
		os.Exit(1)
	}

	// Run once at startup so a freshly deployed worker does not wait a full
	// interval before covering its window.
	run()
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping reminder worker...")
	<-c.Stop().Done()
	logger.Info("reminder worker stopped")
}
