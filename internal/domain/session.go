package domain

import (
	"time"
)

// SessionStatus represents the lifecycle state of a game session
type SessionStatus string

const (
	// SessionActive means the session has an unanswered current question
	SessionActive SessionStatus = "active"
	// SessionAnswered means the current question was solved and the
	// session is waiting for next or end
	SessionAnswered SessionStatus = "answered"
)

// Session is one player's play-through. It exclusively owns its current
// question reference; the catalog itself is never mutated by gameplay.
type Session struct {
	ID              string         `json:"session_id"`
	Difficulty      DifficultyTier `json:"difficulty"`
	PoolSize        int            `json:"pool_size"`
	Status          SessionStatus  `json:"status"`
	CurrentPlayerID string         `json:"current_player_id"`
	Score           int            `json:"score"`
	TotalAttempts   int            `json:"total_attempts"`
	CreatedAt       time.Time      `json:"created_at"`
	LastActivity    time.Time      `json:"last_activity"`
}

// GuessOutcome is the result of matching one guess against a question's
// candidate answer set
type GuessOutcome struct {
	Guess           string `json:"guess"`
	MatchedName     string `json:"matched_name"`
	SimilarityScore int    `json:"similarity_score"`
	Correct         bool   `json:"correct"`
}
