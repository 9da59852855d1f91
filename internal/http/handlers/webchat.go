package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/talobot/talobot/internal/booking"
	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/conversation"
	"github.com/talobot/talobot/pkg/logging"
)

const defaultHistoryLimit = 20

// WebchatConfig wires the public widget endpoints.
type WebchatConfig struct {
	Repo         bots.Repository
	Orchestrator *booking.Orchestrator
	Convo        *conversation.Log
	Logger       *logging.Logger
}

// WebchatHandler serves the embeddable chat widget: no tenant JWT, the bot
// ID in the URL is the only addressing. It never exposes the owner or the
// bot's tokens.
type WebchatHandler struct {
	repo   bots.Repository
	orch   *booking.Orchestrator
	convo  *conversation.Log
	logger *logging.Logger
}

func NewWebchatHandler(cfg WebchatConfig) *WebchatHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebchatHandler{
		repo:   cfg.Repo,
		orch:   cfg.Orchestrator,
		convo:  cfg.Convo,
		logger: cfg.Logger,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat runs one widget message through the pipeline and returns the reply.
// Route: POST /widget/{botID}/chat
func (h *WebchatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.loadBot(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	owner, err := h.repo.GetOwner(r.Context(), bot.OwnerID)
	if err != nil {
		h.logger.Error("load owner failed", "bot_id", bot.ID, "owner_id", bot.OwnerID, "error", err)
		http.Error(w, "bot is misconfigured", http.StatusInternalServerError)
		return
	}

	reply, err := h.orch.HandleInboundMessage(r.Context(), bot, owner, req.Message, booking.ChannelWeb)
	if err != nil {
		h.logger.Error("chat turn failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// History returns the transcript tail shown when the widget reopens.
// Route: GET /widget/{botID}/history?limit=N
func (h *WebchatHandler) History(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.loadBot(w, r)
	if !ok {
		return
	}

	limit := int64(defaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	turns, err := h.convo.Recent(r.Context(), bot.ID, limit)
	if err != nil {
		h.logger.Error("history load failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// Config returns the widget styling for embedding.
// Route: GET /widget/{botID}/config
func (h *WebchatHandler) Config(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.loadBot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   bot.Name,
		"config": bot.Config,
	})
}

func (h *WebchatHandler) loadBot(w http.ResponseWriter, r *http.Request) (*bots.Bot, bool) {
	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	if botID == "" {
		http.Error(w, "missing botID", http.StatusBadRequest)
		return nil, false
	}
	bot, err := h.repo.GetBot(r.Context(), botID)
	if err != nil {
		if errors.Is(err, bots.ErrBotNotFound) {
			http.Error(w, "bot not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("load bot failed", "bot_id", botID, "error", err)
		http.Error(w, "failed to load bot", http.StatusInternalServerError)
		return nil, false
	}
	return bot, true
}
