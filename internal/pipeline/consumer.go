package pipeline

import (
	"sync/atomic"
	"time"
)

// Consumer drains items from the pipeline's queue into a shared destination
// Workers are created with Pipeline.AddConsumer and run on their own
// goroutine once the pipeline starts
type Consumer[T any] struct {
	id       string
	dest     *[]T
	delay    time.Duration
	consumed atomic.Int64
}

// ID returns the worker's identifier
func (c *Consumer[T]) ID() string {
	return c.id
}

// Consumed returns how many items this worker has delivered to its
// destination
// Safe to read while the worker is running
func (c *Consumer[T]) Consumed() int {
	return int(c.consumed.Load())
}

// run polls the queue until a stop message arrives, cancellation is
// signalled, or the queue closes. Dequeue timeouts are routine and simply
// retried. Each real item is paused on for the per-item delay, appended to
// the destination under the pipeline's destination lock, and then
// acknowledged. A panic ends only this worker.
func (c *Consumer[T]) run(p *Pipeline[T]) {
	logger := p.logger.With("worker", c.id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("consumer panicked",
				"panic", r,
				"consumed", c.consumed.Load())
		}
	}()

	logger.Info("consumer started")

	for {
		if p.cancelled() {
			logger.Info("consumer cancelled", "consumed", c.consumed.Load())
			return
		}

		msg, ok, err := p.queue.Get(p.opts.GetTimeout)
		if err != nil {
			logger.Info("consumer stopping, queue closed", "consumed", c.consumed.Load())
			return
		}
		if !ok {
			logger.Debug("queue empty, retrying get")
			continue
		}

		if msg.stop {
			p.queue.Complete()
			logger.Info("consumer finished", "consumed", c.consumed.Load())
			return
		}

		if !p.sleep(c.delay) {
			// The item is already off the queue; acknowledge it so the
			// outstanding count stays honest, but it never reaches the
			// destination. Forceful shutdown accepts such losses.
			p.queue.Complete()
			logger.Info("consumer cancelled mid-item", "consumed", c.consumed.Load())
			return
		}

		p.destMu.Lock()
		*c.dest = append(*c.dest, msg.payload)
		p.destMu.Unlock()

		c.consumed.Add(1)
		p.queue.Complete()
		logger.Debug("item consumed", "consumed", c.consumed.Load())
	}
}
