package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/talobot/talobot/internal/booking"
	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/pkg/logging"
)

// RunnerConfig wires the long-poll runners.
type RunnerConfig struct {
	Repo         bots.Repository
	Handler      TurnHandler
	Dedup        *Dedup
	Logger       *logging.Logger
	PollInterval time.Duration
}

// Runner long-polls Telegram for every bot with a saved token. It is the
// deployment mode for installs without a public HTTPS endpoint; the webhook
// handler covers the rest.
type Runner struct {
	repo    bots.Repository
	handler TurnHandler
	dedup   *Dedup
	logger  *logging.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup

	pollInterval time.Duration
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Runner{
		repo:         cfg.Repo,
		handler:      cfg.Handler,
		dedup:        cfg.Dedup,
		logger:       cfg.Logger,
		active:       map[string]context.CancelFunc{},
		pollInterval: cfg.PollInterval,
	}
}

// Run starts pollers for every integrated bot and rescans periodically so
// integrations saved after startup come online without a restart. It blocks
// until ctx is cancelled and all pollers drain.
func (r *Runner) Run(ctx context.Context) {
	r.syncPollers(ctx)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return
		case <-ticker.C:
			r.syncPollers(ctx)
		}
	}
}

func (r *Runner) syncPollers(ctx context.Context) {
	list, err := r.repo.ListTelegramBots(ctx)
	if err != nil {
		r.logger.Error("telegram runner: list bots failed", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]struct{}, len(list))
	for i := range list {
		bot := list[i]
		current[bot.ID] = struct{}{}
		if _, running := r.active[bot.ID]; running {
			continue
		}
		pollCtx, cancel := context.WithCancel(ctx)
		r.active[bot.ID] = cancel
		r.wg.Add(1)
		go r.poll(pollCtx, bot)
	}

	// Stop pollers for bots whose integration was removed.
	for id, cancel := range r.active {
		if _, still := current[id]; !still {
			cancel()
			delete(r.active, id)
		}
	}
}

func (r *Runner) poll(ctx context.Context, bot bots.Bot) {
	defer r.wg.Done()
	defer r.releasePoller(bot.ID)

	api, err := tgbotapi.NewBotAPI(bot.TelegramToken)
	if err != nil {
		r.logger.Error("telegram runner: connect failed", "bot_id", bot.ID, "error", err)
		return
	}
	r.logger.Info("telegram runner: polling started", "bot_id", bot.ID, "username", api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			r.logger.Info("telegram runner: polling stopped", "bot_id", bot.ID)
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			r.handleUpdate(ctx, bot.ID, api, update)
		}
	}
}

// releasePoller cancels the poller's derived context and drops it from the
// active set. Runs when a poller exits for any reason, including a connect
// failure or a closed updates channel, so the context is never leaked.
func (r *Runner) releasePoller(botID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.active[botID]; ok {
		cancel()
		delete(r.active, botID)
	}
}

func (r *Runner) handleUpdate(ctx context.Context, botID string, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	seen, err := r.dedup.Seen(ctx, botID, update.UpdateID)
	if err != nil {
		r.logger.Warn("telegram runner: dedup check failed", "bot_id", botID, "error", err)
	}
	if seen {
		return
	}

	// Reload so a turn always sees the current dataset and credentials.
	bot, err := r.repo.GetBot(ctx, botID)
	if err != nil {
		r.logger.Error("telegram runner: load bot failed", "bot_id", botID, "error", err)
		r.forgetUpdate(ctx, botID, update.UpdateID)
		return
	}
	owner, err := r.repo.GetOwner(ctx, bot.OwnerID)
	if err != nil {
		r.logger.Error("telegram runner: load owner failed", "bot_id", botID, "error", err)
		r.forgetUpdate(ctx, botID, update.UpdateID)
		return
	}

	replyText, err := r.handler.HandleInboundMessage(ctx, bot, owner, text, booking.ChannelTelegram)
	if err != nil {
		r.logger.Error("telegram runner: turn failed", "bot_id", botID, "error", err)
		r.forgetUpdate(ctx, botID, update.UpdateID)
		return
	}
	if _, err := api.Send(tgbotapi.NewMessage(update.Message.Chat.ID, replyText)); err != nil {
		r.logger.Error("telegram runner: send reply failed", "bot_id", botID, "error", err)
	}
}

// forgetUpdate releases the dedup marker after a failed turn so the update
// can be handled again.
func (r *Runner) forgetUpdate(ctx context.Context, botID string, updateID int) {
	if err := r.dedup.Forget(ctx, botID, updateID); err != nil {
		r.logger.Warn("telegram runner: dedup release failed", "bot_id", botID, "error", err)
	}
}
