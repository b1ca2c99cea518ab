// Package memory provides an in-process vector store: an arena of records
// keyed by chunk id with a secondary index by collection id. Similarity is
// exact cosine computed by full linear scan, which is acceptable at the
// document-collection scale this engine targets.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

// Store implements vector.Store using in-memory maps.
type Store struct {
	// mu guards records and byCollection. Reads are side-effect-free and
	// may proceed concurrently; writes take the exclusive lock.
	mu sync.RWMutex

	// records is the arena, keyed by record id.
	records map[string]vector.Record

	// byCollection is the secondary index: collection id -> record ids.
	byCollection map[string]map[string]struct{}

	logger *zap.Logger
}

// NewStore creates an empty in-process vector store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		records:      make(map[string]vector.Record),
		byCollection: make(map[string]map[string]struct{}),
		logger:       logger,
	}
}

// Initialize is a no-op for the in-process store.
func (s *Store) Initialize(_ context.Context) error {
	return nil
}

// AddDocuments upserts records into the arena. Re-inserting an id replaces
// the stored record, so repeated calls with the same logical chunk are safe.
func (s *Store) AddDocuments(_ context.Context, records []vector.Record) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if prev, ok := s.records[rec.ID]; ok && prev.CollectionID != rec.CollectionID {
			// Re-home the id if the owning collection changed.
			delete(s.byCollection[prev.CollectionID], rec.ID)
		}

		s.records[rec.ID] = rec

		idx, ok := s.byCollection[rec.CollectionID]
		if !ok {
			idx = make(map[string]struct{})
			s.byCollection[rec.CollectionID] = idx
		}
		idx[rec.ID] = struct{}{}

		ids = append(ids, rec.ID)
	}

	s.logger.Debug("added records to in-process store",
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// SimilaritySearch scans every record in the filter's collection and returns
// the k highest cosine similarities, descending. Ties keep insertion-id order
// via the stable sort over the deterministically ordered scan.
func (s *Store) SimilaritySearch(_ context.Context, queryVector []float32, k int, filter vector.Filter) ([]vector.SearchResult, error) {
	if filter.CollectionID == "" {
		return nil, vector.ErrMissingCollection
	}
	if k <= 0 {
		k = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byCollection[filter.CollectionID]

	// Deterministic scan order keeps tie-breaking stable across calls.
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]vector.SearchResult, 0, len(ids))
	for _, id := range ids {
		rec := s.records[id]
		if filter.DocumentID != "" && rec.DocumentID != filter.DocumentID {
			continue
		}

		results = append(results, vector.SearchResult{
			Record: rec,
			Score:  vector.Cosine(queryVector, rec.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// DeleteDocuments removes records by id. Missing ids are ignored.
func (s *Store) DeleteDocuments(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		delete(s.records, id)
		if idx, ok := s.byCollection[rec.CollectionID]; ok {
			delete(idx, id)
		}
	}

	return nil
}

// CollectionStats reports counts and an approximate in-memory size.
func (s *Store) CollectionStats(_ context.Context, collectionID string) (vector.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byCollection[collectionID]

	stats := vector.Stats{VectorCount: len(idx)}
	for id := range idx {
		rec := s.records[id]
		if stats.Dimensions == 0 {
			stats.Dimensions = len(rec.Embedding)
		}
		stats.SizeBytes += int64(4*len(rec.Embedding) + len(rec.ChunkText))
	}

	return stats, nil
}

// HealthCheck always succeeds for the in-process store.
func (s *Store) HealthCheck(_ context.Context) bool {
	return true
}

// Close releases nothing; the arena lives and dies with the process.
func (s *Store) Close() error {
	return nil
}

var _ vector.Store = (*Store)(nil)
