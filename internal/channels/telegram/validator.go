package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Validator checks bot tokens against the Telegram getMe endpoint before an
// integration is saved.
type Validator struct {
	client *http.Client
}

// NewValidator creates a token validator with a bounded HTTP client.
func NewValidator(timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Validator{client: &http.Client{Timeout: timeout}}
}

// Validate calls getMe with the token and returns the bot username it
// belongs to. Any API rejection surfaces as an error.
func (v *Validator) Validate(ctx context.Context, token string) (string, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, v.client)
	if err != nil {
		return "", fmt.Errorf("telegram: validate token: %w", err)
	}
	if api.Self.UserName == "" {
		return "", fmt.Errorf("telegram: getMe returned no username")
	}
	return api.Self.UserName, nil
}
