// Package conversation keeps the append-only record of every inbound and
// outbound message, and derives transcripts and usage statistics from it.
package conversation

import (
	"context"
	"time"
)

// Sender identifies which side of the conversation produced a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is one logged message. Turns are created once and never mutated or
// deleted: one user turn per inbound message, one bot turn per reply, in
// that order.
type Turn struct {
	ID        string    `json:"id"`
	BotID     string    `json:"bot_id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository persists turns.
type Repository interface {
	Append(ctx context.Context, turn Turn) (Turn, error)
	ListByBot(ctx context.Context, botID string) ([]Turn, error)
	StatsByBot(ctx context.Context, botID string) (Stats, error)
}

// Stats summarizes a bot's conversation history for the dashboard.
type Stats struct {
	TotalTurns      int        `json:"total_turns"`
	TotalCharacters int        `json:"total_characters"`
	BotMessages     int        `json:"bot_messages"`
	UserMessages    int        `json:"user_messages"`
	AverageLength   float64    `json:"average_length"`
	LastInteraction *time.Time `json:"last_interaction"`
}
