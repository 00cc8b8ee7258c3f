package pipeline

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Producer feeds a finite, ordered source of items into the pipeline's queue
// Workers are created with Pipeline.AddProducer and run on their own
// goroutine once the pipeline starts
type Producer[T any] struct {
	id       string
	source   []T
	delay    time.Duration
	produced atomic.Int64
}

// ID returns the worker's identifier
func (pr *Producer[T]) ID() string {
	return pr.id
}

// Produced returns how many items this worker has confirmed enqueued
// Safe to read while the worker is running
func (pr *Producer[T]) Produced() int {
	return int(pr.produced.Load())
}

// run walks the source in order: pause the per-item delay, then enqueue with
// a short timeout retried until it succeeds. It returns when the source is
// exhausted, cancellation is signalled, or the queue closes. A panic ends
// only this worker.
func (pr *Producer[T]) run(p *Pipeline[T]) {
	logger := p.logger.With("worker", pr.id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("producer panicked",
				"panic", r,
				"produced", pr.produced.Load())
		}
	}()

	logger.Info("producer started", "items", len(pr.source))

	for _, item := range pr.source {
		if p.cancelled() {
			logger.Info("producer cancelled", "produced", pr.produced.Load())
			return
		}

		if !p.sleep(pr.delay) {
			logger.Info("producer cancelled during delay", "produced", pr.produced.Load())
			return
		}

		if !pr.put(p, logger, item) {
			return
		}
	}

	logger.Info("producer finished", "produced", pr.produced.Load())
}

// put enqueues one item, retrying timed-out attempts until it goes in
// It reports false when the worker must stop instead: cancellation was
// signalled between attempts or the queue closed
func (pr *Producer[T]) put(p *Pipeline[T], logger *slog.Logger, item T) bool {
	for {
		ok, err := p.queue.Put(message[T]{payload: item}, p.opts.PutTimeout)
		if err != nil {
			logger.Info("producer stopping, queue closed", "produced", pr.produced.Load())
			return false
		}
		if ok {
			pr.produced.Add(1)
			logger.Debug("item produced", "produced", pr.produced.Load())
			return true
		}

		if p.cancelled() {
			logger.Info("producer cancelled", "produced", pr.produced.Load())
			return false
		}

		logger.Debug("queue full, retrying put")
	}
}
