// Package kafka provides a Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/eventstream"
)

// DefaultTopic is the topic document events are published to when none is
// configured.
const DefaultTopic = "folio.documents"

// Publisher publishes document events to a Kafka topic. Events for the same
// document are keyed by document id so they land on the same partition in
// order.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the topic to publish to. Defaults to DefaultTopic.
	Topic string
}

// NewPublisher creates a Kafka publisher. The underlying writer connects
// lazily on first publish.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishDocumentProcessed serializes the event and writes it to the topic.
func (p *Publisher) PublishDocumentProcessed(ctx context.Context, event *eventstream.DocumentProcessedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Document.DocumentID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventID, err)
	}

	p.logger.Debug("published document event",
		zap.String("event_id", event.EventID),
		zap.String("document_id", event.Document.DocumentID),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
