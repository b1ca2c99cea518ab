package eventstream

import "context"

// Publisher publishes document lifecycle events to an event stream backend.
type Publisher interface {
	PublishDocumentProcessed(ctx context.Context, event *DocumentProcessedEvent) error
	Close() error
}
