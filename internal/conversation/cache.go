package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "transcript:"
	transcriptTTL       = 30 * 24 * time.Hour
)

// TranscriptCache keeps the recent tail of a bot's transcript in Redis so
// widget history loads don't hit Postgres. It is best-effort: a nil cache
// is valid and every method is a no-op on it.
type TranscriptCache struct {
	redis    *redis.Client
	tracer   trace.Tracer
	maxTurns int64
}

// NewTranscriptCache creates a cache over the given Redis client. Returns
// nil when redisClient is nil so callers can wire it optionally.
func NewTranscriptCache(redisClient *redis.Client) *TranscriptCache {
	if redisClient == nil {
		return nil
	}
	return &TranscriptCache{
		redis:    redisClient,
		tracer:   otel.Tracer("talobot.internal.conversation.transcript_cache"),
		maxTurns: 200,
	}
}

// Append pushes a turn onto the bot's recent-transcript list.
func (c *TranscriptCache) Append(ctx context.Context, turn Turn) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if turn.BotID == "" {
		return errors.New("conversation: transcript cache requires bot id")
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("conversation: marshal cached turn: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "conversation.transcript_cache.append")
	defer span.End()

	key := transcriptKey(turn.BotID)
	pipe := c.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	pipe.LTrim(ctx, key, -c.maxTurns, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append cached turn: %w", err)
	}
	return nil
}

// Recent returns up to limit cached turns, oldest first.
func (c *TranscriptCache) Recent(ctx context.Context, botID string, limit int64) ([]Turn, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	ctx, span := c.tracer.Start(ctx, "conversation.transcript_cache.recent")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := c.redis.LRange(ctx, transcriptKey(botID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, redis.Nil) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("conversation: read cached transcript: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			span.RecordError(err)
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func transcriptKey(botID string) string {
	return transcriptKeyPrefix + botID
}
