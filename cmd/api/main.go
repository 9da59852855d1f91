package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/talobot/talobot/internal/api/router"
	"github.com/talobot/talobot/internal/booking"
	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/channels/telegram"
	appconfig "github.com/talobot/talobot/internal/config"
	"github.com/talobot/talobot/internal/conversation"
	"github.com/talobot/talobot/internal/gcal"
	"github.com/talobot/talobot/internal/http/handlers"
	"github.com/talobot/talobot/internal/notify"
	"github.com/talobot/talobot/internal/observability/metrics"
	"github.com/talobot/talobot/internal/reply"
	"github.com/talobot/talobot/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting talobot API server", "env", cfg.Env, "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
	}

	generator, err := reply.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}

	calendar := gcal.NewGoogleClient(gcal.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, logger)

	emailSender := buildEmailSender(ctx, cfg, logger)
	notifier := notify.NewService(emailSender, notify.NewPostgresEmailLog(pool), logger)

	botsRepo := bots.NewPostgresRepository(pool)
	convoLog := conversation.NewLog(
		conversation.NewPostgresRepository(pool),
		conversation.NewTranscriptCache(redisClient),
		logger,
	)

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)
	orchestrator := booking.New(generator, calendar, notifier, convoLog, pipelineMetrics, logger, booking.Config{
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		BufferMinutes:          cfg.BookingBufferMinutes,
		Timezone:               cfg.DefaultTimezone,
		ExternalCallTimeout:    cfg.ExternalCallTimeout,
	})

	dedup := telegram.NewDedup(redisClient)
	webhook := telegram.NewWebhookHandler(telegram.WebhookConfig{
		Secret:  cfg.TelegramWebhookSecret,
		Repo:    botsRepo,
		Handler: orchestrator,
		Sender:  telegram.NewAPISender(&http.Client{Timeout: cfg.ExternalCallTimeout}),
		Dedup:   dedup,
		Logger:  logger,
	})

	botHandler := handlers.NewBotHandler(handlers.BotConfig{
		Repo:     botsRepo,
		Convo:    convoLog,
		Telegram: telegram.NewValidator(cfg.ExternalCallTimeout),
		Logger:   logger,
	})
	googleAuthHandler := handlers.NewGoogleAuthHandler(handlers.GoogleAuthConfig{
		Repo:               botsRepo,
		Calendar:           calendar,
		JWTSecret:          cfg.JWTSecret,
		SuccessRedirectURL: cfg.GoogleAuthSuccessURL,
		Logger:             logger,
	})
	webchatHandler := handlers.NewWebchatHandler(handlers.WebchatConfig{
		Repo:         botsRepo,
		Orchestrator: orchestrator,
		Convo:        convoLog,
		Logger:       logger,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		BotHandler:         botHandler,
		WebchatHandler:     webchatHandler,
		GoogleAuth:         googleAuthHandler,
		TelegramWebhook:    webhook,
		MetricsHandler:     promhttp.Handler(),
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

// buildEmailSender picks the configured provider. Without credentials the
// stub sender keeps bookings working while only logging the notification.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, falling back to stub email sender", "error", err)
			return notify.NewStubEmailSender(logger)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}
