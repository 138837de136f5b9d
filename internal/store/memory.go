package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/career-sequence-game/internal/domain"
)

const shardCount = 32

// MemoryStore keeps sessions in sharded in-process maps. Each shard has its
// own lock, so operations on unrelated sessions rarely contend and never
// serialize behind a single global lock. Data is lost on restart; use the
// Redis store when sessions must survive the process.
type MemoryStore struct {
	shards [shardCount]*memoryShard
}

type memoryShard struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{sessions: make(map[string]*domain.Session)}
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}

// Insert stores a new session
func (s *MemoryStore) Insert(_ context.Context, session *domain.Session) error {
	sh := s.shardFor(session.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	clone := *session
	sh.sessions[session.ID] = &clone
	return nil
}

// Get returns a snapshot of the session
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *sess
	return &clone, nil
}

// Update applies fn to the session while holding the shard lock, so no
// concurrent update on the same key can interleave
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	clone := *sess
	if err := fn(&clone); err != nil {
		return nil, err
	}
	sh.sessions[id] = &clone

	snapshot := clone
	return &snapshot, nil
}

// Delete removes the session
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(sh.sessions, id)
	return nil
}

// Exists reports whether the session is present
func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	_, ok := sh.sessions[id]
	return ok, nil
}

// Sweep deletes every session whose last activity is older than ttl
func (s *MemoryStore) Sweep(_ context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	swept := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.LastActivity.Before(cutoff) {
				delete(sh.sessions, id)
				swept++
			}
		}
		sh.mu.Unlock()
	}
	return swept, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored sessions, for monitoring
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
