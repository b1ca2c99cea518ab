package testutils

import (
	"context"
	"fmt"

	"github.com/foliodocs/folio/pkg/vector"
)

// MockVectorStore is a test vector store that records writes and returns
// configurable search results.
type MockVectorStore struct {
	// Added accumulates all records passed to AddDocuments.
	Added []vector.Record

	// Deleted accumulates all ids passed to DeleteDocuments.
	Deleted []string

	// SearchResults is returned by SimilaritySearch.
	SearchResults []vector.SearchResult

	// SearchK records the k passed to the most recent SimilaritySearch.
	SearchK int

	// FailAdd causes AddDocuments to return an error.
	FailAdd bool

	// FailSearch causes SimilaritySearch to return an error wrapping
	// vector.ErrSearch.
	FailSearch bool

	// Healthy is reported by HealthCheck.
	Healthy bool
}

func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{Healthy: true}
}

func (m *MockVectorStore) Initialize(_ context.Context) error {
	return nil
}

func (m *MockVectorStore) AddDocuments(_ context.Context, records []vector.Record) ([]string, error) {
	if m.FailAdd {
		return nil, fmt.Errorf("mock add failure")
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	m.Added = append(m.Added, records...)
	return ids, nil
}

func (m *MockVectorStore) SimilaritySearch(_ context.Context, _ []float32, k int, filter vector.Filter) ([]vector.SearchResult, error) {
	m.SearchK = k
	if filter.CollectionID == "" {
		return nil, vector.ErrMissingCollection
	}
	if m.FailSearch {
		return nil, fmt.Errorf("%w: mock search failure", vector.ErrSearch)
	}

	results := m.SearchResults
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockVectorStore) DeleteDocuments(_ context.Context, ids []string) error {
	m.Deleted = append(m.Deleted, ids...)
	return nil
}

func (m *MockVectorStore) CollectionStats(_ context.Context, _ string) (vector.Stats, error) {
	return vector.Stats{VectorCount: len(m.Added)}, nil
}

func (m *MockVectorStore) HealthCheck(_ context.Context) bool {
	return m.Healthy
}

func (m *MockVectorStore) Close() error {
	return nil
}

var _ vector.Store = (*MockVectorStore)(nil)
