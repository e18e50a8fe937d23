// Package jobs runs background work against the job queue.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobProcessor handles one batch of pending work per poll.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed polling interval until its
// context is cancelled or Stop is called.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWorker creates a worker; Start must be called to begin polling.
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start blocks, polling until ctx is cancelled or Stop is called. The first
// poll runs immediately so work left over from a previous run is picked up
// without waiting out a full interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	log.Printf("Worker started with poll interval: %v", w.pollInterval)
	w.poll(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
			return
		case <-w.stop:
			log.Println("Worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("Error processing jobs: %v", err)
	}
}

// Stop signals the polling loop and waits for it to exit. Safe to call
// more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
	log.Println("Worker shutdown complete")
}
