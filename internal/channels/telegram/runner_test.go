package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talobot/talobot/pkg/logging"
)

func TestReleasePollerCancelsDerivedContext(t *testing.T) {
	r := NewRunner(RunnerConfig{Logger: logging.New("error")})
	ctx, cancel := context.WithCancel(context.Background())
	r.active["bot-1"] = cancel

	r.releasePoller("bot-1")

	select {
	case <-ctx.Done():
	default:
		t.Fatal("derived context must be cancelled when the poller is released")
	}
	_, still := r.active["bot-1"]
	assert.False(t, still, "released pollers leave the active set")

	// Releasing again, or releasing an unknown bot, is a no-op.
	r.releasePoller("bot-1")
	r.releasePoller("bot-9")
}

func TestReleasePollerLeavesOthersRunning(t *testing.T) {
	r := NewRunner(RunnerConfig{Logger: logging.New("error")})
	ctxA, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()
	r.active["bot-a"] = cancelA
	r.active["bot-b"] = cancelB

	r.releasePoller("bot-a")

	assert.Error(t, ctxA.Err())
	assert.NoError(t, ctxB.Err())
	_, still := r.active["bot-b"]
	assert.True(t, still)
}
