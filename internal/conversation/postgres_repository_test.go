package conversation

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendInsertsTurn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs(pgxmock.AnyArg(), "bot-1", "user", "hola", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresRepositoryWithQuerier(mock)
	stored, err := repo.Append(context.Background(), Turn{
		BotID:  "bot-1",
		Sender: SenderUser,
		Text:   "hola",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID, "append assigns an id")
	assert.False(t, stored.Timestamp.IsZero(), "append assigns a timestamp")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByBotOrdersChronologically(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	early := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)
	mock.ExpectQuery("SELECT id, bot_id, sender, text, created_at").
		WithArgs("bot-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "bot_id", "sender", "text", "created_at"}).
			AddRow("t1", "bot-1", "user", "hola", early).
			AddRow("t2", "bot-1", "bot", "¡Hola! ¿En qué puedo ayudarte?", late))

	repo := NewPostgresRepositoryWithQuerier(mock)
	turns, err := repo.ListByBot(context.Background(), "bot-1")

	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, SenderUser, turns[0].Sender)
	assert.Equal(t, SenderBot, turns[1].Sender)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsByBot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	last := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT").
		WithArgs("bot-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum", "bot", "user", "max"}).
			AddRow(4, 120, 2, 2, &last))

	repo := NewPostgresRepositoryWithQuerier(mock)
	stats, err := repo.StatsByBot(context.Background(), "bot-1")

	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTurns)
	assert.Equal(t, 2, stats.BotMessages)
	assert.Equal(t, 2, stats.UserMessages)
	assert.InDelta(t, 30.0, stats.AverageLength, 0.001)
	require.NotNil(t, stats.LastInteraction)
	assert.Equal(t, last, *stats.LastInteraction)
}

func TestStatsByBotEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").
		WithArgs("bot-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum", "bot", "user", "max"}).
			AddRow(0, 0, 0, 0, (*time.Time)(nil)))

	repo := NewPostgresRepositoryWithQuerier(mock)
	stats, err := repo.StatsByBot(context.Background(), "bot-1")

	require.NoError(t, err)
	assert.Zero(t, stats.TotalTurns)
	assert.Zero(t, stats.AverageLength)
	assert.Nil(t, stats.LastInteraction)
}
