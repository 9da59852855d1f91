package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/catalog"
	"github.com/talobot/talobot/internal/conversation"
	"github.com/talobot/talobot/internal/http/middleware"
	"github.com/talobot/talobot/pkg/logging"
)

const maxDatasetUploadBytes = 5 << 20

// TelegramTokenValidator checks a bot token against the Telegram API and
// returns the bot username it belongs to.
type TelegramTokenValidator interface {
	Validate(ctx context.Context, token string) (username string, err error)
}

// BotConfig wires the tenant bot endpoints.
type BotConfig struct {
	Repo     bots.Repository
	Convo    *conversation.Log
	Telegram TelegramTokenValidator
	Logger   *logging.Logger
}

// BotHandler serves the dashboard's bot management API. Every route assumes
// TenantAuth ran earlier in the chain.
type BotHandler struct {
	repo     bots.Repository
	convo    *conversation.Log
	telegram TelegramTokenValidator
	logger   *logging.Logger
}

func NewBotHandler(cfg BotConfig) *BotHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &BotHandler{
		repo:     cfg.Repo,
		convo:    cfg.Convo,
		telegram: cfg.Telegram,
		logger:   cfg.Logger,
	}
}

type createBotRequest struct {
	Name    string            `json:"name"`
	Prompts []bots.PromptPair `json:"prompts"`
}

// Create registers a new bot for the authenticated owner.
// Route: POST /bots
func (h *BotHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	bot := &bots.Bot{
		OwnerID: claims.UserID,
		Name:    req.Name,
		Prompts: req.Prompts,
		Config:  bots.DefaultWidgetConfig(),
	}
	created, err := h.repo.CreateBot(r.Context(), bot)
	if err != nil {
		h.logger.Error("create bot failed", "owner_id", claims.UserID, "error", err)
		http.Error(w, "failed to create bot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List returns the authenticated owner's bots.
// Route: GET /bots
func (h *BotHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.repo.ListByOwner(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list bots failed", "owner_id", claims.UserID, "error", err)
		http.Error(w, "failed to list bots", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []bots.Bot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bots": list})
}

// Get returns one bot owned by the caller.
// Route: GET /bots/{botID}
func (h *BotHandler) Get(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

type updateBotRequest struct {
	Name    *string            `json:"name"`
	Prompts *[]bots.PromptPair `json:"prompts"`
}

// Update changes a bot's name and prompt pairs.
// Route: PUT /bots/{botID}
func (h *BotHandler) Update(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}

	var req updateBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			http.Error(w, "name cannot be empty", http.StatusBadRequest)
			return
		}
		bot.Name = name
	}
	if req.Prompts != nil {
		bot.Prompts = *req.Prompts
	}

	if err := h.repo.UpdateBot(r.Context(), bot); err != nil {
		h.logger.Error("update bot failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to update bot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// Delete removes a bot and everything hanging off it.
// Route: DELETE /bots/{botID}
func (h *BotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteBot(r.Context(), bot.ID); err != nil {
		h.logger.Error("delete bot failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to delete bot", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDataset replaces the bot's dataset with the rows of an uploaded CSV
// or Excel file. The swap is wholesale; there is no merge with previous
// uploads.
// Route: POST /bots/{botID}/dataset
func (h *BotHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDatasetUploadBytes)
	if err := r.ParseMultipartForm(maxDatasetUploadBytes); err != nil {
		http.Error(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var rows []map[string]any
	switch {
	case strings.HasSuffix(strings.ToLower(header.Filename), ".csv"):
		rows, err = catalog.ParseCSV(file)
	case strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx"):
		rows, err = catalog.ParseXLSX(file)
	default:
		http.Error(w, "only CSV and XLSX uploads are supported", http.StatusUnsupportedMediaType)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("could not parse dataset: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.repo.ReplaceDataset(r.Context(), bot.ID, rows); err != nil {
		h.logger.Error("replace dataset failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to store dataset", http.StatusInternalServerError)
		return
	}
	h.logger.Info("dataset replaced", "bot_id", bot.ID, "rows", len(rows), "filename", header.Filename)
	writeJSON(w, http.StatusOK, map[string]any{"rows": len(rows)})
}

// UpdateConfig changes the web widget styling.
// Route: PUT /bots/{botID}/config
func (h *BotHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}

	cfg := bots.DefaultWidgetConfig()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.repo.UpdateWidgetConfig(r.Context(), bot.ID, cfg); err != nil {
		h.logger.Error("update widget config failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to update config", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Stats returns conversation usage aggregates. The route sits behind
// RequirePlan(pro, full) in the router.
// Route: GET /bots/{botID}/stats
func (h *BotHandler) Stats(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}
	stats, err := h.convo.Stats(r.Context(), bot.ID)
	if err != nil {
		h.logger.Error("stats failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportConversations streams the bot's full transcript as CSV or JSON.
// Route: GET /bots/{botID}/conversations/export?format=csv|json
func (h *BotHandler) ExportConversations(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}
	turns, err := h.convo.Transcript(r.Context(), bot.ID)
	if err != nil {
		h.logger.Error("transcript export failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to load conversations", http.StatusInternalServerError)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-conversations.json", bot.ID))
		if err := conversation.WriteJSON(w, turns); err != nil {
			h.logger.Error("write JSON export failed", "bot_id", bot.ID, "error", err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-conversations.csv", bot.ID))
		if err := conversation.WriteCSV(w, turns); err != nil {
			h.logger.Error("write CSV export failed", "bot_id", bot.ID, "error", err)
		}
	default:
		http.Error(w, "format must be csv or json", http.StatusBadRequest)
	}
}

type connectTelegramRequest struct {
	Token string `json:"token"`
}

// ConnectTelegram validates a Telegram bot token against the Telegram API
// and saves the integration. An invalid token is rejected without storing
// anything.
// Route: POST /bots/{botID}/telegram
func (h *BotHandler) ConnectTelegram(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}
	if h.telegram == nil {
		http.Error(w, "telegram integration is not configured", http.StatusServiceUnavailable)
		return
	}

	var req connectTelegramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	username, err := h.telegram.Validate(r.Context(), req.Token)
	if err != nil {
		h.logger.Info("telegram token rejected", "bot_id", bot.ID, "error", err)
		http.Error(w, "token was rejected by Telegram", http.StatusUnprocessableEntity)
		return
	}

	if err := h.repo.SetTelegramIntegration(r.Context(), bot.ID, req.Token, username); err != nil {
		h.logger.Error("save telegram integration failed", "bot_id", bot.ID, "error", err)
		http.Error(w, "failed to save integration", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"telegram_bot_username": username})
}

// ownedBot loads the bot from the URL and enforces that the caller owns it.
// A bot belonging to someone else reads as not found so bot IDs cannot be
// probed across tenants.
func (h *BotHandler) ownedBot(w http.ResponseWriter, r *http.Request) (*bots.Bot, bool) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	if botID == "" {
		http.Error(w, "missing botID", http.StatusBadRequest)
		return nil, false
	}
	bot, err := loadOwnedBot(r.Context(), h.repo, claims.UserID, botID)
	if err != nil {
		if errors.Is(err, bots.ErrBotNotFound) || errors.Is(err, bots.ErrNotBotOwner) {
			http.Error(w, "bot not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("load bot failed", "bot_id", botID, "error", err)
		http.Error(w, "failed to load bot", http.StatusInternalServerError)
		return nil, false
	}
	return bot, true
}

// loadOwnedBot fetches the bot and checks ownership, returning ErrNotBotOwner
// on a cross-tenant access.
func loadOwnedBot(ctx context.Context, repo bots.Repository, ownerID, botID string) (*bots.Bot, error) {
	bot, err := repo.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.OwnerID != ownerID {
		return nil, bots.ErrNotBotOwner
	}
	return bot, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
