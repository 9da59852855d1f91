// Package bots holds the tenant-facing chatbot configuration: who owns a
// bot, its prompt pairs, its uploaded dataset and its channel integrations.
package bots

import (
	"errors"
	"time"
)

// Plans gate dashboard features. The plan lives on the owner; payment
// handling happens elsewhere entirely.
const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanFull = "full"
)

var (
	ErrBotNotFound   = errors.New("bots: bot not found")
	ErrOwnerNotFound = errors.New("bots: owner not found")
	ErrNotBotOwner   = errors.New("bots: caller does not own this bot")
)

// PromptPair is one configured question/answer example for a bot.
type PromptPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// WidgetConfig styles the embedded web chat widget.
type WidgetConfig struct {
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	Font            string `json:"font"`
	FontSize        int    `json:"font_size"`
}

// DefaultWidgetConfig mirrors the widget defaults served to new bots.
func DefaultWidgetConfig() WidgetConfig {
	return WidgetConfig{
		BackgroundColor: "#ffffff",
		TextColor:       "#000000",
		Font:            "Poppins",
		FontSize:        14,
	}
}

// Bot is one configured chatbot persona.
type Bot struct {
	ID                  string           `json:"id"`
	OwnerID             string           `json:"owner_id"`
	Name                string           `json:"name"`
	Prompts             []PromptPair     `json:"prompts"`
	Dataset             []map[string]any `json:"dataset"`
	Config              WidgetConfig     `json:"config"`
	TelegramToken       string           `json:"-"`
	TelegramBotUsername string           `json:"telegram_bot_username,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// HasTelegram reports whether the bot has a Telegram integration saved.
func (b *Bot) HasTelegram() bool {
	return b.TelegramToken != ""
}

// Owner is the tenant who configured the bot. GoogleTokens is the opaque
// calendar credential blob; only the calendar client decodes it.
type Owner struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Plan         string    `json:"plan"`
	GoogleTokens []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasCalendar reports whether the owner connected a Google Calendar.
func (o *Owner) HasCalendar() bool {
	return len(o.GoogleTokens) > 0
}
