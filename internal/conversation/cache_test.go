package conversation

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *TranscriptCache {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewTranscriptCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestTranscriptCacheRoundTrip(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	require.NoError(t, cache.Append(ctx, Turn{ID: "1", BotID: "bot-1", Sender: SenderUser, Text: "hola", Timestamp: now}))
	require.NoError(t, cache.Append(ctx, Turn{ID: "2", BotID: "bot-1", Sender: SenderBot, Text: "¡Hola!", Timestamp: now.Add(time.Second)}))

	turns, err := cache.Recent(ctx, "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hola", turns[0].Text)
	assert.Equal(t, SenderBot, turns[1].Sender)
}

func TestTranscriptCacheLimit(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Append(ctx, Turn{BotID: "bot-1", Sender: SenderUser, Text: "m"}))
	}

	turns, err := cache.Recent(ctx, "bot-1", 2)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestTranscriptCacheIsolatesBots(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Append(ctx, Turn{BotID: "bot-1", Sender: SenderUser, Text: "a"}))

	turns, err := cache.Recent(ctx, "bot-2", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestTranscriptCacheRequiresBotID(t *testing.T) {
	cache := testCache(t)
	assert.Error(t, cache.Append(context.Background(), Turn{Sender: SenderUser, Text: "a"}))
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *TranscriptCache

	assert.NoError(t, cache.Append(context.Background(), Turn{BotID: "b"}))
	turns, err := cache.Recent(context.Background(), "b", 10)
	assert.NoError(t, err)
	assert.Nil(t, turns)
}
