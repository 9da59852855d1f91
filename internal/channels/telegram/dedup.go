// Package telegram connects tenant bots to Telegram, in webhook mode and
// as a long-poll runner. Both paths feed the same booking pipeline.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	dedupKeyPrefix = "telegram:update:"
	dedupTTL       = 24 * time.Hour
)

// Dedup remembers processed Telegram update IDs so a redelivered webhook
// cannot run the same turn twice. Nil-safe: without Redis every update is
// treated as fresh.
type Dedup struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewDedup creates the processed-update store. Returns nil when redisClient
// is nil so callers can wire it optionally.
func NewDedup(redisClient *redis.Client) *Dedup {
	if redisClient == nil {
		return nil
	}
	return &Dedup{
		redis:  redisClient,
		tracer: otel.Tracer("talobot.internal.channels.telegram.dedup"),
	}
}

// Seen marks the update as processed and reports whether it already was.
func (d *Dedup) Seen(ctx context.Context, botID string, updateID int) (bool, error) {
	if d == nil || d.redis == nil {
		return false, nil
	}
	ctx, span := d.tracer.Start(ctx, "telegram.dedup.seen")
	defer span.End()

	key := dedupKey(botID, updateID)
	fresh, err := d.redis.SetNX(ctx, key, "1", dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("telegram: dedup check: %w", err)
	}
	return !fresh, nil
}

// Forget drops the processed marker. Callers use it when a turn failed after
// Seen marked the update, so Telegram's redelivery gets another attempt.
func (d *Dedup) Forget(ctx context.Context, botID string, updateID int) error {
	if d == nil || d.redis == nil {
		return nil
	}
	ctx, span := d.tracer.Start(ctx, "telegram.dedup.forget")
	defer span.End()

	if err := d.redis.Del(ctx, dedupKey(botID, updateID)).Err(); err != nil {
		return fmt.Errorf("telegram: dedup forget: %w", err)
	}
	return nil
}

func dedupKey(botID string, updateID int) string {
	return fmt.Sprintf("%s%s:%d", dedupKeyPrefix, botID, updateID)
}
