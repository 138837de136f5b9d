package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/career-sequence-game/internal/domain"
)

func newSession(id string) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:           id,
		Difficulty:   domain.DifficultyShort,
		PoolSize:     100,
		Status:       domain.SessionActive,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Insert(ctx, newSession("s1")))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	exists, err := s.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "s1"))

	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "s1"), domain.ErrSessionNotFound)

	exists, err = s.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Insert(ctx, newSession("s1")))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	got.Score = 99

	fresh, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Score)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Update(ctx, "nope", func(sess *domain.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStoreUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Insert(ctx, newSession("s1")))

	boom := errors.New("boom")
	_, err := s.Update(ctx, "s1", func(sess *domain.Session) error {
		sess.Score = 42
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)
}

func TestMemoryStoreUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Insert(ctx, newSession("s1")))

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "s1", func(sess *domain.Session) error {
				sess.TotalAttempts++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, n, got.TotalAttempts)
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	stale := newSession("stale")
	stale.LastActivity = time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.Insert(ctx, stale))
	require.NoError(t, s.Insert(ctx, newSession("fresh")))

	swept, err := s.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = s.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.Get(ctx, "fresh")
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}
