package bots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores bots and owners in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bots: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithQuerier allows injecting mocks for tests.
func NewPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

const botColumns = `id, owner_id, name, prompts, dataset, config,
	COALESCE(telegram_token, ''), COALESCE(telegram_bot_username, ''),
	created_at, updated_at`

// CreateBot inserts a new bot with default widget styling.
func (r *PostgresRepository) CreateBot(ctx context.Context, bot *Bot) (*Bot, error) {
	if bot.ID == "" {
		bot.ID = uuid.NewString()
	}
	if bot.Prompts == nil {
		bot.Prompts = []PromptPair{}
	}
	if bot.Config == (WidgetConfig{}) {
		bot.Config = DefaultWidgetConfig()
	}
	prompts, err := json.Marshal(bot.Prompts)
	if err != nil {
		return nil, fmt.Errorf("bots: marshal prompts: %w", err)
	}
	cfg, err := json.Marshal(bot.Config)
	if err != nil {
		return nil, fmt.Errorf("bots: marshal config: %w", err)
	}

	query := `
		INSERT INTO bots (id, owner_id, name, prompts, dataset, config)
		VALUES ($1, $2, $3, $4, '[]'::jsonb, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, bot.ID, bot.OwnerID, bot.Name, prompts, cfg).
		Scan(&bot.CreatedAt, &bot.UpdatedAt); err != nil {
		return nil, fmt.Errorf("bots: insert bot: %w", err)
	}
	if bot.Dataset == nil {
		bot.Dataset = []map[string]any{}
	}
	return bot, nil
}

// GetBot loads a bot by id.
func (r *PostgresRepository) GetBot(ctx context.Context, botID string) (*Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`
	bot, err := scanBot(r.db.QueryRow(ctx, query, botID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBotNotFound
		}
		return nil, fmt.Errorf("bots: select bot: %w", err)
	}
	return bot, nil
}

// ListByOwner returns the owner's bots, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE owner_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("bots: list bots: %w", err)
	}
	defer rows.Close()

	var out []Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("bots: scan bot: %w", err)
		}
		out = append(out, *bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bots: iterate bots: %w", err)
	}
	return out, nil
}

// UpdateBot saves name and prompts.
func (r *PostgresRepository) UpdateBot(ctx context.Context, bot *Bot) error {
	prompts, err := json.Marshal(bot.Prompts)
	if err != nil {
		return fmt.Errorf("bots: marshal prompts: %w", err)
	}
	query := `UPDATE bots SET name = $2, prompts = $3, updated_at = NOW() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, bot.ID, bot.Name, prompts)
	if err != nil {
		return fmt.Errorf("bots: update bot: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// DeleteBot removes a bot.
func (r *PostgresRepository) DeleteBot(ctx context.Context, botID string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM bots WHERE id = $1`, botID)
	if err != nil {
		return fmt.Errorf("bots: delete bot: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// ReplaceDataset swaps the stored dataset wholesale.
func (r *PostgresRepository) ReplaceDataset(ctx context.Context, botID string, dataset []map[string]any) error {
	if dataset == nil {
		dataset = []map[string]any{}
	}
	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("bots: marshal dataset: %w", err)
	}
	ct, err := r.db.Exec(ctx, `UPDATE bots SET dataset = $2, updated_at = NOW() WHERE id = $1`, botID, data)
	if err != nil {
		return fmt.Errorf("bots: replace dataset: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// UpdateWidgetConfig saves widget styling.
func (r *PostgresRepository) UpdateWidgetConfig(ctx context.Context, botID string, cfg WidgetConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("bots: marshal config: %w", err)
	}
	ct, err := r.db.Exec(ctx, `UPDATE bots SET config = $2, updated_at = NOW() WHERE id = $1`, botID, data)
	if err != nil {
		return fmt.Errorf("bots: update config: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// SetTelegramIntegration stores a validated Telegram bot token.
func (r *PostgresRepository) SetTelegramIntegration(ctx context.Context, botID, token, username string) error {
	query := `
		UPDATE bots
		SET telegram_token = $2, telegram_bot_username = $3, updated_at = NOW()
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query, botID, token, username)
	if err != nil {
		return fmt.Errorf("bots: set telegram integration: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// ListTelegramBots returns every bot with a Telegram token configured.
func (r *PostgresRepository) ListTelegramBots(ctx context.Context) ([]Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE telegram_token IS NOT NULL AND telegram_token <> ''`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("bots: list telegram bots: %w", err)
	}
	defer rows.Close()

	var out []Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("bots: scan telegram bot: %w", err)
		}
		out = append(out, *bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bots: iterate telegram bots: %w", err)
	}
	return out, nil
}

// GetOwner loads a tenant, calendar credentials included.
func (r *PostgresRepository) GetOwner(ctx context.Context, ownerID string) (*Owner, error) {
	query := `
		SELECT id, email, username, plan, COALESCE(google_tokens, ''), created_at
		FROM owners
		WHERE id = $1
	`
	var owner Owner
	var tokens string
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&owner.ID, &owner.Email, &owner.Username, &owner.Plan, &tokens, &owner.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("bots: select owner: %w", err)
	}
	if tokens != "" {
		owner.GoogleTokens = []byte(tokens)
	}
	return &owner, nil
}

// SetOwnerGoogleTokens saves the calendar credential blob from the OAuth
// callback. Passing an empty blob clears the connection.
func (r *PostgresRepository) SetOwnerGoogleTokens(ctx context.Context, ownerID string, tokens []byte) error {
	ct, err := r.db.Exec(ctx, `UPDATE owners SET google_tokens = $2 WHERE id = $1`, ownerID, string(tokens))
	if err != nil {
		return fmt.Errorf("bots: set owner google tokens: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOwnerNotFound
	}
	return nil
}

func scanBot(row pgx.Row) (*Bot, error) {
	var bot Bot
	var prompts, dataset, cfg []byte
	if err := row.Scan(
		&bot.ID, &bot.OwnerID, &bot.Name, &prompts, &dataset, &cfg,
		&bot.TelegramToken, &bot.TelegramBotUsername,
		&bot.CreatedAt, &bot.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(prompts, &bot.Prompts); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	if err := json.Unmarshal(dataset, &bot.Dataset); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := json.Unmarshal(cfg, &bot.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &bot, nil
}
