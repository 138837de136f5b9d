package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/career-sequence-game/internal/domain"
)

func memoryFixture() []domain.CareerSequence {
	return []domain.CareerSequence{
		{
			PlayerID:        "p1",
			PlayerName:      "Player One",
			MarketValueRank: 1,
			Difficulty:      domain.DifficultyShort,
			Visits:          []domain.ClubVisit{{Club: "A"}, {Club: "B"}},
		},
		{
			PlayerID:        "p2",
			PlayerName:      "Player Two",
			MarketValueRank: 200,
			Difficulty:      domain.DifficultyShort,
			Visits:          []domain.ClubVisit{{Club: "C"}, {Club: "D"}, {Club: "E"}},
		},
		{
			PlayerID:        "p3",
			PlayerName:      "Player Three",
			MarketValueRank: 2,
			Difficulty:      domain.DifficultyModerate,
			Visits:          []domain.ClubVisit{{Club: "A"}, {Club: "B"}, {Club: "C"}, {Club: "D"}, {Club: "E"}},
		},
	}
}

func TestMemoryListByDifficulty(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(memoryFixture())

	all, err := m.ListByDifficulty(ctx, domain.DifficultyShort, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Bounding the pool to the top 100 by market value drops p2.
	bounded, err := m.ListByDifficulty(ctx, domain.DifficultyShort, 100)
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.Equal(t, "p1", bounded[0].PlayerID)

	empty, err := m.ListByDifficulty(ctx, domain.DifficultyLong, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryGetSequence(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(memoryFixture())

	seq, err := m.GetSequence(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Player Two", seq.PlayerName)

	_, err = m.GetSequence(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(memoryFixture())

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalQuestions)
	require.Len(t, stats.ByDifficulty, 2)

	short := stats.ByDifficulty[0]
	assert.Equal(t, domain.DifficultyShort, short.Difficulty)
	assert.Equal(t, 2, short.Count)
	assert.Equal(t, 2, short.MinVisits)
	assert.Equal(t, 3, short.MaxVisits)
	assert.InDelta(t, 2.5, short.AvgVisits, 1e-9)

	moderate := stats.ByDifficulty[1]
	assert.Equal(t, domain.DifficultyModerate, moderate.Difficulty)
	assert.Equal(t, 1, moderate.Count)
}
