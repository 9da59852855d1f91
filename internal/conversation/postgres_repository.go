package conversation

import (
	"context"
	"fmt"
	"time"

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

// PostgresRepository stores turns in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithQuerier allows injecting mocks for tests.
func NewPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// Append inserts one turn. The row is immutable afterwards.
func (r *PostgresRepository) Append(ctx context.Context, turn Turn) (Turn, error) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO conversation_turns (id, bot_id, sender, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(ctx, query,
		turn.ID, turn.BotID, string(turn.Sender), turn.Text, turn.Timestamp,
	); err != nil {
		return Turn{}, fmt.Errorf("conversation: insert turn: %w", err)
	}
	return turn, nil
}

// ListByBot returns all turns for a bot in chronological order.
func (r *PostgresRepository) ListByBot(ctx context.Context, botID string) ([]Turn, error) {
	query := `
		SELECT id, bot_id, sender, text, created_at
		FROM conversation_turns
		WHERE bot_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var sender string
		if err := rows.Scan(&t.ID, &t.BotID, &sender, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation: scan turn: %w", err)
		}
		t.Sender = Sender(sender)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate turns: %w", err)
	}
	return turns, nil
}

// StatsByBot aggregates usage statistics for a bot.
func (r *PostgresRepository) StatsByBot(ctx context.Context, botID string) (Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(LENGTH(text)), 0),
			COUNT(*) FILTER (WHERE sender = 'bot'),
			COUNT(*) FILTER (WHERE sender = 'user'),
			MAX(created_at)
		FROM conversation_turns
		WHERE bot_id = $1
	`
	var stats Stats
	var last *time.Time
	if err := r.db.QueryRow(ctx, query, botID).Scan(
		&stats.TotalTurns,
		&stats.TotalCharacters,
		&stats.BotMessages,
		&stats.UserMessages,
		&last,
	); err != nil {
		return Stats{}, fmt.Errorf("conversation: stats: %w", err)
	}
	if stats.TotalTurns > 0 {
		stats.AverageLength = float64(stats.TotalCharacters) / float64(stats.TotalTurns)
	}
	stats.LastInteraction = last
	return stats, nil
}
