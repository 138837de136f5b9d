// Package ratelimit implements a per-identity sliding-window guess limiter.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

// Limiter admits at most limit requests per identity within a rolling
// window. Identities are sharded so unrelated clients rarely contend on
// one lock; counting per identity is exact under concurrency.
type Limiter struct {
	limit  int
	window time.Duration
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

// New creates a limiter admitting limit requests per identity per window
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string][]time.Time)}
	}
	return l
}

// Allow decides admit/reject for one request from the given identity.
// On rejection it reports how long until the next request would be admitted.
func (l *Limiter) Allow(identity string) (bool, time.Duration) {
	s := l.shards[shardIndex(identity)]
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Drop admissions that have rolled out of the window.
	times := s.entries[identity]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) < l.limit {
		s.entries[identity] = append(kept, now)
		return true, 0
	}

	s.entries[identity] = kept
	retryAfter := kept[0].Add(l.window).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return false, retryAfter
}

// Prune removes identities with no admissions inside the current window
// and returns how many were dropped. Run periodically from the sweeper.
func (l *Limiter) Prune() int {
	cutoff := l.now().Add(-l.window)
	pruned := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for id, times := range s.entries {
			if len(times) == 0 || !times[len(times)-1].After(cutoff) {
				delete(s.entries, id)
				pruned++
			}
		}
		s.mu.Unlock()
	}
	return pruned
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}
