package conversation

import (
	"context"

	"github.com/talobot/talobot/pkg/logging"
)

// Log is the write path for turns: the Postgres repository is the source of
// truth, the Redis cache a best-effort copy for fast history reads.
type Log struct {
	repo   Repository
	cache  *TranscriptCache
	logger *logging.Logger
}

// NewLog wires the append-only log. cache may be nil.
func NewLog(repo Repository, cache *TranscriptCache, logger *logging.Logger) *Log {
	if repo == nil {
		panic("conversation: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Log{repo: repo, cache: cache, logger: logger}
}

// Append persists a turn. A cache failure is logged and swallowed; the
// repository write is the one that matters.
func (l *Log) Append(ctx context.Context, turn Turn) (Turn, error) {
	stored, err := l.repo.Append(ctx, turn)
	if err != nil {
		return Turn{}, err
	}
	if cacheErr := l.cache.Append(ctx, stored); cacheErr != nil {
		l.logger.Warn("transcript cache append failed", "bot_id", stored.BotID, "error", cacheErr)
	}
	return stored, nil
}

// Transcript returns the full history for a bot from the repository.
func (l *Log) Transcript(ctx context.Context, botID string) ([]Turn, error) {
	return l.repo.ListByBot(ctx, botID)
}

// Recent serves the transcript tail from the cache, falling back to the
// repository when the cache is cold or absent.
func (l *Log) Recent(ctx context.Context, botID string, limit int64) ([]Turn, error) {
	cached, err := l.cache.Recent(ctx, botID, limit)
	if err != nil {
		l.logger.Warn("transcript cache read failed", "bot_id", botID, "error", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}
	turns, err := l.repo.ListByBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(turns)) > limit {
		turns = turns[int64(len(turns))-limit:]
	}
	return turns, nil
}

// Stats aggregates usage statistics for a bot.
func (l *Log) Stats(ctx context.Context, botID string) (Stats, error) {
	return l.repo.StatsByBot(ctx, botID)
}
