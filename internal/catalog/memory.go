package catalog

import (
	"context"
	"sort"

	"github.com/career-sequence-game/internal/domain"
)

// Memory is an in-process catalog backed by a fixed slice of sequences.
// It backs tests and small self-contained deployments where the builder
// output is loaded from a file instead of PostgreSQL.
type Memory struct {
	seqs []domain.CareerSequence
}

// NewMemory creates a catalog over the given sequences
func NewMemory(seqs []domain.CareerSequence) *Memory {
	return &Memory{seqs: seqs}
}

// ListByDifficulty returns every sequence in the tier within the top-N pool
func (m *Memory) ListByDifficulty(_ context.Context, tier domain.DifficultyTier, topN int) ([]domain.CareerSequence, error) {
	var out []domain.CareerSequence
	for _, s := range m.seqs {
		if s.Difficulty != tier {
			continue
		}
		if topN > 0 && s.MarketValueRank > topN {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// GetSequence returns one player's sequence
func (m *Memory) GetSequence(_ context.Context, playerID string) (*domain.CareerSequence, error) {
	for i := range m.seqs {
		if m.seqs[i].PlayerID == playerID {
			seq := m.seqs[i]
			return &seq, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

// ListAll returns every sequence
func (m *Memory) ListAll(_ context.Context) ([]domain.CareerSequence, error) {
	out := make([]domain.CareerSequence, len(m.seqs))
	copy(out, m.seqs)
	return out, nil
}

// Stats summarizes the question pool per difficulty tier
func (m *Memory) Stats(_ context.Context) (*domain.GameStats, error) {
	type agg struct {
		count, sum, min, max int
	}
	byTier := make(map[domain.DifficultyTier]*agg)
	for _, s := range m.seqs {
		a, ok := byTier[s.Difficulty]
		if !ok {
			a = &agg{min: len(s.Visits), max: len(s.Visits)}
			byTier[s.Difficulty] = a
		}
		n := len(s.Visits)
		a.count++
		a.sum += n
		if n < a.min {
			a.min = n
		}
		if n > a.max {
			a.max = n
		}
	}

	stats := &domain.GameStats{}
	for tier, a := range byTier {
		stats.ByDifficulty = append(stats.ByDifficulty, domain.DifficultyStats{
			Difficulty: tier,
			Count:      a.count,
			AvgVisits:  float64(a.sum) / float64(a.count),
			MinVisits:  a.min,
			MaxVisits:  a.max,
		})
		stats.TotalQuestions += a.count
	}
	sort.Slice(stats.ByDifficulty, func(i, j int) bool {
		return stats.ByDifficulty[i].MinVisits < stats.ByDifficulty[j].MinVisits
	})
	return stats, nil
}
