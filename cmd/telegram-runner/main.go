package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/talobot/talobot/internal/booking"
	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/channels/telegram"
	appconfig "github.com/talobot/talobot/internal/config"
	"github.com/talobot/talobot/internal/conversation"
	"github.com/talobot/talobot/internal/gcal"
	"github.com/talobot/talobot/internal/notify"
	"github.com/talobot/talobot/internal/reply"
	"github.com/talobot/talobot/pkg/logging"
)

// The runner is the deployment mode for installs without a public HTTPS
// endpoint: it long-polls Telegram for every integrated bot and feeds the
// same pipeline the webhook would.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting talobot telegram runner", "env", cfg.Env)

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

	notifier := notify.NewService(notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger), notify.NewPostgresEmailLog(pool), logger)

	botsRepo := bots.NewPostgresRepository(pool)
	convoLog := conversation.NewLog(
		conversation.NewPostgresRepository(pool),
		conversation.NewTranscriptCache(redisClient),
		logger,
	)

	orchestrator := booking.New(generator, calendar, notifier, convoLog, nil, logger, booking.Config{
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		BufferMinutes:          cfg.BookingBufferMinutes,
		Timezone:               cfg.DefaultTimezone,
		ExternalCallTimeout:    cfg.ExternalCallTimeout,
	})

	runner := telegram.NewRunner(telegram.RunnerConfig{
		Repo:         botsRepo,
		Handler:      orchestrator,
		Dedup:        telegram.NewDedup(redisClient),
		Logger:       logger,
		PollInterval: cfg.TelegramPollInterval,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down telegram runner...")
		cancel()
	}()

	runner.Run(ctx)
	logger.Info("telegram runner stopped")
}
