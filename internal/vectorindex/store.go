package vectorindex

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talentlens/recommend/internal/catalog"
)

// Store pairs a searchable vector index with the parallel metadata records.
// The invariant is positional: hit offset i addresses Records[i]. A store is
// read-only after loading and shared across concurrent queries.
type Store struct {
	Index     Searcher
	Records   []catalog.Record
	Dimension int
}

// LoadStore reads the vector and metadata files into a flat-index store.
// A length mismatch between the two files is tolerated: search hits whose
// offset has no record are skipped by the caller, not rejected here.
func LoadStore(vectorFile, metadataFile string) (*Store, error) {
	dim, vectors, err := ReadVectors(vectorFile)
	if err != nil {
		return nil, err
	}

	records, err := catalog.ReadRecords(metadataFile)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(records) {
		slog.Warn("vector and metadata counts differ, out-of-range offsets will be skipped",
			"vectors", len(vectors),
			"records", len(records),
		)
	}

	index := NewFlatIndex(dim)
	if err := index.Add(vectors...); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	slog.Info("loaded vector index",
		"vectors", index.Len(),
		"records", len(records),
		"dimension", dim,
	)

	return &Store{Index: index, Records: records, Dimension: dim}, nil
}

// LazyStore defers loading until the first Get. Exactly one load runs even
// under concurrent first requests; callers block until it completes. A
// failed load is not cached, so the next request retries it.
type LazyStore struct {
	mu    sync.Mutex
	load  func() (*Store, error)
	store *Store
}

// NewLazyStore wraps a load function in lazy, single-flight initialization.
func NewLazyStore(load func() (*Store, error)) *LazyStore {
	return &LazyStore{load: load}
}

// Get returns the loaded store, loading it on first use.
func (l *LazyStore) Get() (*Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}

	store, err := l.load()
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	l.store = store
	return store, nil
}
