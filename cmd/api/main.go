package main

import (
	"context"
	"crypto/tls"
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

	"github.com/dorotheo-dental/sage/internal/api/router"
	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/availability"
	"github.com/dorotheo-dental/sage/internal/booking"
	appconfig "github.com/dorotheo-dental/sage/internal/config"
	"github.com/dorotheo-dental/sage/internal/conversation"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/internal/http/handlers"
	"github.com/dorotheo-dental/sage/internal/intent"
	"github.com/dorotheo-dental/sage/internal/notify"
	"github.com/dorotheo-dental/sage/internal/observability/metrics"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sage booking engine",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.PatientJWTSecret == "" {
		logger.Error("PATIENT_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(ctx)
	}
	cancel()
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis is optional: without it the engine still works, it just loses the
	// cross-turn draft memory.
	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, session memory disabled", "error", err, "addr", cfg.RedisAddr)
			_ = client.Close()
		} else {
			rdb = client
			defer client.Close()
		}
		pingCancel()
	}

	// Stores and domain services.
	dirStore := directory.NewStore(pool)
	apptRepo := appointments.NewRepository(pool)
	availRepo := availability.NewRepository(pool)
	slotService := availability.NewService(availRepo, apptRepo, logger)

	// The classifier corrects misspelled dentist names, so seed it with the
	// current roster.
	var dentistNames []string
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if dentists, err := dirStore.ListDentists(startupCtx); err != nil {
		logger.Warn("failed to preload dentist roster", "error", err)
	} else {
		for _, d := range dentists {
			dentistNames = append(dentistNames, d.FullName())
		}
	}
	startupCancel()

	classifier := intent.NewClassifier(logger, intent.WithDentistNames(dentistNames))
	convMetrics := metrics.NewConversationMetrics(prometheus.DefaultRegisterer)
	validator := booking.NewEngine(apptRepo, logger)
	lifecycle := appointments.NewLifecycle(apptRepo, logger)

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("sendgrid not configured, notifications will be logged only")
		emailSender = notify.NewStubEmailSender(logger)
	}
	var staff []string
	if cfg.StaffNotifyEmail != "" {
		staff = append(staff, cfg.StaffNotifyEmail)
	}
	notifier := notify.NewService(emailSender, staff, logger)

	engineOpts := []conversation.Option{
		conversation.WithMetrics(convMetrics),
		conversation.WithQuickReplyCap(cfg.QuickReplyCap),
		conversation.WithReplyMaxLines(cfg.ReplyMaxLines),
	}
	if rdb != nil {
		engineOpts = append(engineOpts, conversation.WithSessionStore(
			conversation.NewSessionStore(rdb, cfg.SessionTTL, logger)))
	}
	engine := conversation.NewEngine(
		classifier, dirStore, apptRepo, slotService,
		validator, lifecycle, notifier, logger, engineOpts...)

	routerCfg := &router.Config{
		Logger:              logger,
		ChatHandler:         handlers.NewChatHandler(engine, dirStore, logger),
		AppointmentsHandler: handlers.NewAppointmentsHandler(apptRepo, logger),
		DirectoryHandler:    handlers.NewDirectoryHandler(dirStore, logger),
		HealthHandler:       handlers.NewHealthHandler(pool, rdb),
		MetricsHandler:      promhttp.Handler(),
		PatientAuthSecret:   cfg.PatientJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRateLimit:       2,
		ChatRateBurst:       5,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
