package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/talobot/talobot/internal/booking"
	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/pkg/logging"
)

// TurnHandler runs one inbound message through the booking pipeline.
// *booking.Orchestrator satisfies it.
type TurnHandler interface {
	HandleInboundMessage(ctx context.Context, bot *bots.Bot, owner *bots.Owner, message string, channel booking.Channel) (string, error)
}

// ReplySender delivers the pipeline's reply back to a Telegram chat.
type ReplySender interface {
	SendReply(ctx context.Context, token string, chatID int64, text string) error
}

// WebhookConfig wires the webhook endpoint.
type WebhookConfig struct {
	Secret  string
	Repo    bots.Repository
	Handler TurnHandler
	Sender  ReplySender
	Dedup   *Dedup
	Logger  *logging.Logger
}

// WebhookHandler receives Telegram updates pushed to our public URL. One
// route serves every bot; the bot ID rides in the path and the shared
// secret in the standard Telegram header.
type WebhookHandler struct {
	secret  string
	repo    bots.Repository
	handler TurnHandler
	sender  ReplySender
	dedup   *Dedup
	logger  *logging.Logger
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{
		secret:  cfg.Secret,
		repo:    cfg.Repo,
		handler: cfg.Handler,
		sender:  cfg.Sender,
		dedup:   cfg.Dedup,
		logger:  cfg.Logger,
	}
}

// ServeUpdate handles one pushed update. Telegram retries non-2xx
// responses, so everything past authentication answers 200 even when the
// turn itself failed.
// Route: POST /telegram/webhook/{botID}
func (h *WebhookHandler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || subtle.ConstantTimeCompare(
		[]byte(r.Header.Get("X-Telegram-Bot-Api-Secret-Token")), []byte(h.secret)) != 1 {
		http.Error(w, "invalid webhook secret", http.StatusUnauthorized)
		return
	}

	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	bot, err := h.repo.GetBot(r.Context(), botID)
	if err != nil {
		if errors.Is(err, bots.ErrBotNotFound) {
			http.Error(w, "unknown bot", http.StatusNotFound)
			return
		}
		h.logger.Error("telegram webhook: load bot failed", "bot_id", botID, "error", err)
		http.Error(w, "failed to load bot", http.StatusInternalServerError)
		return
	}
	if !bot.HasTelegram() {
		http.Error(w, "bot has no telegram integration", http.StatusNotFound)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid update payload", http.StatusBadRequest)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	seen, err := h.dedup.Seen(r.Context(), bot.ID, update.UpdateID)
	if err != nil {
		h.logger.Warn("telegram webhook: dedup check failed", "bot_id", bot.ID, "error", err)
	}
	if seen {
		h.logger.Info("telegram webhook: duplicate update skipped", "bot_id", bot.ID, "update_id", update.UpdateID)
		w.WriteHeader(http.StatusOK)
		return
	}

	owner, err := h.repo.GetOwner(r.Context(), bot.OwnerID)
	if err != nil {
		h.logger.Error("telegram webhook: load owner failed", "bot_id", bot.ID, "error", err)
		if err := h.dedup.Forget(r.Context(), bot.ID, update.UpdateID); err != nil {
			h.logger.Warn("telegram webhook: dedup release failed", "bot_id", bot.ID, "error", err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	replyText, err := h.handler.HandleInboundMessage(r.Context(), bot, owner, text, booking.ChannelTelegram)
	if err != nil {
		h.logger.Error("telegram webhook: turn failed", "bot_id", bot.ID, "error", err)
		// Release the dedup marker so Telegram's redelivery retries the turn.
		if err := h.dedup.Forget(r.Context(), bot.ID, update.UpdateID); err != nil {
			h.logger.Warn("telegram webhook: dedup release failed", "bot_id", bot.ID, "error", err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.sender.SendReply(r.Context(), bot.TelegramToken, update.Message.Chat.ID, replyText); err != nil {
		h.logger.Error("telegram webhook: send reply failed", "bot_id", bot.ID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

// APISender sends replies through the Telegram Bot API.
type APISender struct {
	client *http.Client
}

func NewAPISender(client *http.Client) *APISender {
	if client == nil {
		client = http.DefaultClient
	}
	return &APISender{client: client}
}

func (s *APISender) SendReply(ctx context.Context, token string, chatID int64, text string) error {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, s.client)
	if err != nil {
		return err
	}
	_, err = api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
