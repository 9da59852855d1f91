package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/channels/telegram"
	"github.com/talobot/talobot/internal/http/handlers"
	httpmiddleware "github.com/talobot/talobot/internal/http/middleware"
	"github.com/talobot/talobot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	BotHandler         *handlers.BotHandler
	WebchatHandler     *handlers.WebchatHandler
	GoogleAuth         *handlers.GoogleAuthHandler
	TelegramWebhook    *telegram.WebhookHandler
	MetricsHandler     http.Handler
	JWTSecret          string
	CORSAllowedOrigins []string
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	// Public endpoints: widget, webhooks, health, metrics.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WebchatHandler != nil {
			public.Route("/widget/{botID}", func(r chi.Router) {
				r.Post("/chat", cfg.WebchatHandler.Chat)
				r.Get("/history", cfg.WebchatHandler.History)
				r.Get("/config", cfg.WebchatHandler.Config)
			})
		}
		if cfg.TelegramWebhook != nil {
			public.Post("/telegram/webhook/{botID}", cfg.TelegramWebhook.ServeUpdate)
		}
		// Google redirects the tenant's browser here after the consent
		// screen; the signed state parameter carries the owner identity.
		if cfg.GoogleAuth != nil {
			public.Get("/google/callback", cfg.GoogleAuth.Callback)
		}
	})

	// Tenant dashboard API, JWT-protected.
	if cfg.BotHandler != nil {
		r.Route("/api/bots", func(api chi.Router) {
			api.Use(httpmiddleware.TenantAuth(cfg.JWTSecret))
			api.Post("/", cfg.BotHandler.Create)
			api.Get("/", cfg.BotHandler.List)
			api.Route("/{botID}", func(r chi.Router) {
				r.Get("/", cfg.BotHandler.Get)
				r.Put("/", cfg.BotHandler.Update)
				r.Delete("/", cfg.BotHandler.Delete)
				r.Post("/dataset", cfg.BotHandler.UploadDataset)
				r.Put("/config", cfg.BotHandler.UpdateConfig)
				r.Get("/conversations/export", cfg.BotHandler.ExportConversations)
				r.Post("/telegram", cfg.BotHandler.ConnectTelegram)
				r.With(httpmiddleware.RequirePlan(bots.PlanPro, bots.PlanFull)).
					Get("/stats", cfg.BotHandler.Stats)
			})
		})
	}

	if cfg.GoogleAuth != nil {
		r.Route("/api/google", func(api chi.Router) {
			api.Use(httpmiddleware.TenantAuth(cfg.JWTSecret))
			api.Get("/connect", cfg.GoogleAuth.Connect)
			api.Delete("/", cfg.GoogleAuth.Disconnect)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
