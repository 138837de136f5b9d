package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNoQuestions        = errors.New("no questions available")
	ErrInvalidState       = errors.New("operation not valid in current session state")
	ErrValidation         = errors.New("invalid request")
	ErrCatalogUnavailable = errors.New("sequence catalog unavailable")
)

// RateLimitError is returned when a client identity has exceeded its
// guess budget for the current window
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrNoQuestions)
}
