package bots

import "context"

// Repository persists bots and owners.
type Repository interface {
	CreateBot(ctx context.Context, bot *Bot) (*Bot, error)
	GetBot(ctx context.Context, botID string) (*Bot, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Bot, error)
	UpdateBot(ctx context.Context, bot *Bot) error
	DeleteBot(ctx context.Context, botID string) error

	// ReplaceDataset swaps the uploaded dataset wholesale; there is no
	// partial merge.
	ReplaceDataset(ctx context.Context, botID string, rows []map[string]any) error
	UpdateWidgetConfig(ctx context.Context, botID string, cfg WidgetConfig) error
	SetTelegramIntegration(ctx context.Context, botID, token, username string) error

	// ListTelegramBots returns every bot with a saved Telegram token, for
	// the long-poll runners.
	ListTelegramBots(ctx context.Context) ([]Bot, error)

	GetOwner(ctx context.Context, ownerID string) (*Owner, error)

	// SetOwnerGoogleTokens stores the opaque calendar credential blob on the
	// owner. An empty blob disconnects the calendar.
	SetOwnerGoogleTokens(ctx context.Context, ownerID string, tokens []byte) error
}
