package jobs

import (
	"context"
	"log"
	"time"
)

const defaultPollInterval = 10 * time.Second

// JobProcessor drains whatever work is currently queued. Implementations
// must be safe to call repeatedly.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed polling cadence. It runs one pass
// immediately on start so queued work is not delayed by a full interval.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks, polling until the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("jobs: worker polling every %v", w.pollInterval)
	w.poll(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("jobs: worker stopping, context cancelled")
			return
		case <-w.stopChan:
			log.Println("jobs: worker stopping")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("jobs: processing pass failed: %v", err)
	}
}

// Stop signals the worker and waits for the current pass to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("jobs: worker stopped")
}
