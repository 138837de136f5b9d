// Package game orchestrates the catalog, matcher, session store and rate
// limiter into the session state machine.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/career-sequence-game/internal/catalog"
	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/domain"
	"github.com/career-sequence-game/internal/match"
	"github.com/career-sequence-game/internal/ratelimit"
	"github.com/career-sequence-game/internal/store"
)

// Broadcaster receives live gameplay events for spectators. Implementations
// must not block; the engine calls these on the request path.
type Broadcaster interface {
	SessionStarted(difficulty domain.DifficultyTier)
	PuzzleSolved(difficulty domain.DifficultyTier, playerName string, score int)
}

// Engine provides the five session operations: start, guess, next, end
// and status. Per-session serialization comes entirely from the store's
// atomic Update; the engine itself holds no locks.
type Engine struct {
	catalog catalog.Catalog
	store   store.SessionStore
	limiter *ratelimit.Limiter
	cfg     *config.GameConfig
	logger  *slog.Logger
	hub     Broadcaster
}

// NewEngine creates a new session engine
func NewEngine(
	cat catalog.Catalog,
	sessions store.SessionStore,
	limiter *ratelimit.Limiter,
	cfg *config.GameConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		catalog: cat,
		store:   sessions,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetHub attaches a spectator broadcaster
func (e *Engine) SetHub(hub Broadcaster) {
	e.hub = hub
}

// StartResult is returned by Start
type StartResult struct {
	SessionID     string          `json:"session_id"`
	Question      domain.Question `json:"question"`
	Score         int             `json:"score"`
	TotalAttempts int             `json:"total_attempts"`
}

// GuessResult is returned by Guess
type GuessResult struct {
	Correct         bool     `json:"correct"`
	MatchedName     string   `json:"matched_name"`
	SimilarityScore int      `json:"similarity_score"`
	AllCandidates   []string `json:"all_candidate_names"`
	SessionScore    int      `json:"session_score"`
	TotalAttempts   int      `json:"total_attempts"`
}

// NextResult is returned by Next
type NextResult struct {
	Question      domain.Question `json:"question"`
	Score         int             `json:"score"`
	TotalAttempts int             `json:"total_attempts"`
}

// NextOverrides carries the optional difficulty/pool overrides accepted by
// Next; absent fields default to the session's current values
type NextOverrides struct {
	Difficulty *domain.DifficultyTier `json:"difficulty,omitempty"`
	TopN       *int                   `json:"top_n,omitempty"`
}

// EndResult is returned by End
type EndResult struct {
	FinalScore    int     `json:"final_score"`
	TotalAttempts int     `json:"total_attempts"`
	Accuracy      float64 `json:"accuracy"`
	Duration      string  `json:"duration"`
}

// LookupResult is returned by LookupPlayer
type LookupResult struct {
	PlayerID   string             `json:"player_id"`
	PlayerName string             `json:"player_name"`
	NumVisits  int                `json:"num_visits"`
	Visits     []domain.ClubVisit `json:"visits"`
}

// Start creates a session with a first question drawn from the given
// difficulty tier and top-N market-value pool
func (e *Engine) Start(ctx context.Context, tier domain.DifficultyTier, topN int) (*StartResult, error) {
	tier, topN, err := e.validatePool(tier, topN)
	if err != nil {
		return nil, err
	}

	seq, err := e.pickQuestion(ctx, tier, topN)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &domain.Session{
		ID:              uuid.New().String(),
		Difficulty:      tier,
		PoolSize:        topN,
		Status:          domain.SessionActive,
		CurrentPlayerID: seq.PlayerID,
		CreatedAt:       now,
		LastActivity:    now,
	}
	if err := e.store.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	if e.hub != nil {
		e.hub.SessionStarted(tier)
	}
	e.logger.Info("session started", "session_id", session.ID, "difficulty", tier, "pool_size", topN)

	return &StartResult{
		SessionID: session.ID,
		Question:  domain.QuestionFor(seq),
	}, nil
}

// Guess submits one free-text guess against the session's current question.
// Guesses are rate-limited per client identity before any session state is
// touched. A correct guess transitions the session to answered; only the
// first correct guess counts, concurrent duplicates fail with invalid state.
func (e *Engine) Guess(ctx context.Context, sessionID, identity, text string) (*GuessResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: guess text is empty", domain.ErrValidation)
	}

	if ok, retryAfter := e.limiter.Allow(identity); !ok {
		return nil, &domain.RateLimitError{RetryAfter: retryAfter}
	}

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, domain.ErrInvalidState
	}

	seq, err := e.catalog.GetSequence(ctx, session.CurrentPlayerID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	candidates := seq.CandidateNames()
	matchedName, score := match.BestMatch(text, candidates)
	correct := score >= e.cfg.MatchThreshold

	// The matcher ran against a snapshot; the update re-checks that the
	// session still holds the same unanswered question before applying.
	updated, err := e.store.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Status != domain.SessionActive || s.CurrentPlayerID != seq.PlayerID {
			return domain.ErrInvalidState
		}
		s.TotalAttempts++
		s.LastActivity = time.Now()
		if correct {
			s.Score++
			s.Status = domain.SessionAnswered
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if correct && e.hub != nil {
		e.hub.PuzzleSolved(updated.Difficulty, seq.PlayerName, updated.Score)
	}

	return &GuessResult{
		Correct:         correct,
		MatchedName:     matchedName,
		SimilarityScore: score,
		AllCandidates:   candidates,
		SessionScore:    updated.Score,
		TotalAttempts:   updated.TotalAttempts,
	}, nil
}

// Next advances an answered session to a fresh question, optionally
// overriding the difficulty tier or pool size. Repeats are permitted;
// selection stays uniformly random over the filtered pool.
func (e *Engine) Next(ctx context.Context, sessionID string, overrides NextOverrides) (*NextResult, error) {
	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionAnswered {
		return nil, domain.ErrInvalidState
	}

	tier := session.Difficulty
	topN := session.PoolSize
	if overrides.Difficulty != nil {
		tier = *overrides.Difficulty
	}
	if overrides.TopN != nil {
		topN = *overrides.TopN
	}
	tier, topN, err = e.validatePool(tier, topN)
	if err != nil {
		return nil, err
	}

	seq, err := e.pickQuestion(ctx, tier, topN)
	if err != nil {
		return nil, err
	}

	updated, err := e.store.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Status != domain.SessionAnswered {
			return domain.ErrInvalidState
		}
		s.Difficulty = tier
		s.PoolSize = topN
		s.CurrentPlayerID = seq.PlayerID
		s.Status = domain.SessionActive
		s.LastActivity = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &NextResult{
		Question:      domain.QuestionFor(seq),
		Score:         updated.Score,
		TotalAttempts: updated.TotalAttempts,
	}, nil
}

// End finalizes and removes the session. Ending a missing or already-ended
// session is a no-op success.
func (e *Engine) End(ctx context.Context, sessionID string) (*EndResult, error) {
	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return &EndResult{}, nil
		}
		return nil, err
	}

	accuracy := 0.0
	if session.TotalAttempts > 0 {
		accuracy = float64(session.Score) / float64(session.TotalAttempts)
	}
	duration := time.Since(session.CreatedAt).Round(time.Second)

	// The TTL sweep may race the delete; either way the session is gone.
	if err := e.store.Delete(ctx, sessionID); err != nil && !domain.IsNotFoundError(err) {
		e.logger.Warn("failed to delete session on end", "session_id", sessionID, "error", err)
	}
	e.logger.Info("session ended",
		"session_id", sessionID,
		"score", session.Score,
		"attempts", session.TotalAttempts,
	)

	return &EndResult{
		FinalScore:    session.Score,
		TotalAttempts: session.TotalAttempts,
		Accuracy:      accuracy,
		Duration:      duration.String(),
	}, nil
}

// Status returns a read-only session snapshot
func (e *Engine) Status(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.store.Get(ctx, sessionID)
}

// LookupPlayer finds a player by approximate name across the whole catalog,
// using a looser threshold than guess acceptance
func (e *Engine) LookupPlayer(ctx context.Context, name string) (*LookupResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: player name is empty", domain.ErrValidation)
	}

	seqs, err := e.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	names := make([]string, len(seqs))
	for i := range seqs {
		names[i] = seqs[i].PlayerName
	}

	matched, score := match.BestMatch(name, names)
	if score < e.cfg.LookupThreshold {
		return nil, domain.ErrPlayerNotFound
	}

	for i := range seqs {
		if seqs[i].PlayerName == matched {
			return &LookupResult{
				PlayerID:   seqs[i].PlayerID,
				PlayerName: seqs[i].PlayerName,
				NumVisits:  len(seqs[i].Visits),
				Visits:     seqs[i].Visits,
			}, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

// Stats summarizes the question catalog
func (e *Engine) Stats(ctx context.Context) (*domain.GameStats, error) {
	stats, err := e.catalog.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return stats, nil
}

// validatePool normalizes and validates the difficulty/pool pair
func (e *Engine) validatePool(tier domain.DifficultyTier, topN int) (domain.DifficultyTier, int, error) {
	if !tier.Valid() {
		return "", 0, fmt.Errorf("%w: difficulty must be short, moderate or long", domain.ErrValidation)
	}
	if topN == 0 {
		topN = e.cfg.DefaultPoolSize
	}
	if topN < 0 || topN > e.cfg.MaxPoolSize {
		return "", 0, fmt.Errorf("%w: pool size must be between 1 and %d", domain.ErrValidation, e.cfg.MaxPoolSize)
	}
	return tier, topN, nil
}

// pickQuestion selects uniformly at random from the filtered pool
func (e *Engine) pickQuestion(ctx context.Context, tier domain.DifficultyTier, topN int) (*domain.CareerSequence, error) {
	pool, err := e.catalog.ListByDifficulty(ctx, tier, topN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no %s questions in the top %d pool", domain.ErrNoQuestions, tier, topN)
	}
	seq := pool[rand.Intn(len(pool))]
	return &seq, nil
}
