// Package match scores free-text guesses against candidate player names.
// All functions are pure and safe for concurrent use.
package match

import (
	"math"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tokenWeight discounts a guess that only matches a single token of a
// multi-word candidate ("Messi" vs "Lionel Messi"), so an exact token hit
// lands at 90, still clearing the default acceptance threshold of 85.
const tokenWeight = 0.9

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares a name for comparison: trims surrounding whitespace,
// lowercases, strips diacritics and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// Score returns a 0-100 similarity between a guess and one candidate name.
// Identical normalized strings score 100.
func Score(guess, candidate string) int {
	g := Normalize(guess)
	c := Normalize(candidate)
	if g == "" || c == "" {
		return 0
	}
	if g == c {
		return 100
	}

	lev := metrics.NewLevenshtein()
	best := strutil.Similarity(g, c, lev)

	// A guess may target one token of a multi-word name.
	if tokens := strings.Fields(c); len(tokens) > 1 {
		for _, tok := range tokens {
			if sim := strutil.Similarity(g, tok, lev) * tokenWeight; sim > best {
				best = sim
			}
		}
	}

	return int(math.Round(best * 100))
}

// BestMatch returns the candidate with the highest similarity to the guess
// and that score. With no candidates it returns the guess itself and 0.
// Ties keep the earliest candidate.
func BestMatch(guess string, candidates []string) (string, int) {
	if len(candidates) == 0 {
		return guess, 0
	}

	bestName := candidates[0]
	bestScore := Score(guess, candidates[0])
	for _, cand := range candidates[1:] {
		if s := Score(guess, cand); s > bestScore {
			bestName, bestScore = cand, s
		}
	}
	return bestName, bestScore
}
