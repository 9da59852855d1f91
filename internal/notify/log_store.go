package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresEmailLog appends sent mails to the email_log table.
type PostgresEmailLog struct {
	db execer
}

// NewPostgresEmailLog initializes the store backed by pgxpool.
func NewPostgresEmailLog(pool *pgxpool.Pool) *PostgresEmailLog {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &PostgresEmailLog{db: pool}
}

// NewPostgresEmailLogWithExec allows injecting mocks for tests.
func NewPostgresEmailLogWithExec(e execer) *PostgresEmailLog {
	return &PostgresEmailLog{db: e}
}

// Record inserts one sent-mail row.
func (s *PostgresEmailLog) Record(ctx context.Context, to, subject, body string) error {
	query := `
		INSERT INTO email_log (id, recipient, subject, body)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, query, uuid.NewString(), to, subject, body); err != nil {
		return fmt.Errorf("notify: insert email log: %w", err)
	}
	return nil
}
