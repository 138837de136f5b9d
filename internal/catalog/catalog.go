// Package catalog exposes the read-only set of built career sequences.
package catalog

import (
	"context"

	"github.com/career-sequence-game/internal/domain"
)

// Catalog is the queryable set of game-ready career sequences. It is
// populated by the sequence-builder batch job and never mutated at
// request time; shared-path back-references are precomputed, not joined
// per query.
type Catalog interface {
	// ListByDifficulty returns every sequence in the tier whose player
	// ranks within the top topN by market value. topN <= 0 means no bound.
	ListByDifficulty(ctx context.Context, tier domain.DifficultyTier, topN int) ([]domain.CareerSequence, error)

	// GetSequence returns one player's sequence, or domain.ErrPlayerNotFound.
	GetSequence(ctx context.Context, playerID string) (*domain.CareerSequence, error)

	// ListAll returns every sequence, used for name lookup.
	ListAll(ctx context.Context) ([]domain.CareerSequence, error)

	// Stats summarizes the question pool per difficulty tier.
	Stats(ctx context.Context) (*domain.GameStats, error)
}
