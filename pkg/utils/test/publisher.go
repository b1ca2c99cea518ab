package testutils

import (
	"context"
	"sync"

	"github.com/foliodocs/folio/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.DocumentProcessedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishDocumentProcessed(_ context.Context, event *eventstream.DocumentProcessedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of the published events.
func (m *MockPublisher) Events() []*eventstream.DocumentProcessedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.DocumentProcessedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
