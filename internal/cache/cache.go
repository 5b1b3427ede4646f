// Package cache provides in-memory caching of recommendation results.
// Embedding and reranking both hit paid APIs, so repeated identical
// queries are served from here instead.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/talentlens/recommend/internal/catalog"
)

type entry struct {
	results   []catalog.Candidate
	expiresAt time.Time
}

// Store is a TTL-bounded cache of recommendation results.
// For multi-instance deployments, consider Redis instead.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
}

// NewStore creates a cache holding up to maxEntries results for ttl each.
func NewStore(maxEntries int, ttl time.Duration) *Store {
	s := &Store{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// DefaultStore creates a cache with sensible defaults.
// - Max 1000 cached queries
// - 15 minute TTL (catalog content changes rarely, rankings can drift)
func DefaultStore() *Store {
	return NewStore(1000, 15*time.Minute)
}

// Key builds the cache key for a request. Every parameter that changes
// the output participates, so flag variants never collide.
func Key(query string, topK int, useReranking, balanceTypes bool) string {
	return fmt.Sprintf("%s|%d|%t|%t", query, topK, useReranking, balanceTypes)
}

// Get returns the cached results for key, or false if absent or expired.
func (s *Store) Get(key string) ([]catalog.Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}

	// Return a copy so callers cannot mutate the cached slice.
	results := make([]catalog.Candidate, len(e.results))
	copy(results, e.results)
	return results, true
}

// Set stores results under key. When the cache is full, new entries are
// dropped rather than evicting live ones; expired entries age out via the
// cleanup loop.
func (s *Store) Set(key string, results []catalog.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		return
	}

	stored := make([]catalog.Candidate, len(results))
	copy(stored, results)

	s.entries[key] = entry{
		results:   stored,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Len returns the number of cached entries, including expired ones not
// yet collected.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	close(s.done)
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
