package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/domain"
	"github.com/career-sequence-game/internal/ratelimit"
	"github.com/career-sequence-game/internal/store"
)

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewMemoryStore()

	stale := &domain.Session{ID: "stale", LastActivity: time.Now().Add(-2 * time.Hour)}
	fresh := &domain.Session{ID: "fresh", LastActivity: time.Now()}
	require.NoError(t, sessions.Insert(ctx, stale))
	require.NoError(t, sessions.Insert(ctx, fresh))

	cfg := &config.SessionConfig{TTL: time.Hour, SweepInterval: time.Minute}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewSweeper(sessions, ratelimit.New(10, time.Minute), cfg, logger)

	w.RunOnce(ctx)

	_, err := sessions.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = sessions.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSweeperStopToleratesConcurrentCalls(t *testing.T) {
	cfg := &config.SessionConfig{TTL: time.Hour, SweepInterval: 10 * time.Millisecond}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewSweeper(store.NewMemoryStore(), nil, cfg, logger)

	require.NoError(t, w.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Stop())
		}()
	}
	wg.Wait()

	assert.False(t, w.IsRunning())
	// A later Stop on the already-stopped worker is still a no-op.
	assert.NoError(t, w.Stop())
}

func TestSweeperStartStop(t *testing.T) {
	cfg := &config.SessionConfig{TTL: time.Hour, SweepInterval: 10 * time.Millisecond}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewSweeper(store.NewMemoryStore(), nil, cfg, logger)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())

	// Starting twice is a no-op.
	require.NoError(t, w.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}
