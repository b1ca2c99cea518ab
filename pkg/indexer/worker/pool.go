// Package worker provides an asynchronous worker pool that runs the indexing
// pipeline in the background.
//
// The pool decouples document processing from the API's HTTP hot path so that
// uploads are accepted immediately and indexed as workers become free.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/indexer"
	"github.com/foliodocs/folio/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Document *storage.Document
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Pipeline processes the queued documents.
	Pipeline *indexer.Pipeline

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes indexing jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Pipeline == nil {
		return nil, fmt.Errorf("indexing pipeline is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("indexing job queued",
			zap.String("document_id", job.Document.ID),
			zap.String("collection_id", job.Document.CollectionID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("document_id", job.Document.ID),
			zap.String("collection_id", job.Document.CollectionID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("indexing worker stopped", zap.Uint("worker_id", id))
}

// processJob runs one document through the pipeline. The pipeline records
// the terminal status itself; failures here are only logged.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	outcome, err := p.config.Pipeline.Process(ctx, job.Document)
	if err != nil {
		p.logger.Error("async document indexing failed",
			zap.String("document_id", job.Document.ID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("document processed",
		zap.String("document_id", outcome.DocumentID),
		zap.String("status", string(outcome.Status)),
		zap.Int("chunks", outcome.ChunkCount),
	)
}
