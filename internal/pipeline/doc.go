// Package pipeline orchestrates producer and consumer workers around a
// bounded hand-off queue.
//
// The package implements a classic bounded producer/consumer topology with a
// strict lifecycle, lossless (graceful) and bounded-time (forceful) shutdown
// protocols, and live statistics.
//
// # Key Features
//
//   - Any number of producers and consumers over one fixed-capacity queue
//   - Blocking back-pressure with per-attempt timeouts, never busy-spinning
//   - Graceful shutdown that provably delivers every produced item
//   - Forceful shutdown that returns within a configurable budget
//   - Per-worker counters and pipeline-wide statistics, readable while running
//   - Structured logging correlated by a per-run ID
//   - Zero goroutine leaks
//
// # Basic Usage
//
// Create a pipeline, register workers, start it, and shut it down:
//
//	p, err := pipeline.New[int](3)
//	if err != nil {
//	    return err
//	}
//
//	var results []int
//	p.AddProducer("producer-1", []int{1, 2, 3, 4, 5}, 10*time.Millisecond)
//	p.AddConsumer("consumer-1", &results, 5*time.Millisecond)
//
//	if err := p.Start(); err != nil {
//	    return err
//	}
//	if err := p.ShutdownGracefully(); err != nil {
//	    return err
//	}
//
// After a graceful shutdown, results holds every produced item exactly once.
//
// # Shutdown Protocols
//
// ShutdownGracefully waits for producers to exhaust their sources, drains
// the queue, delivers one stop message per consumer, drains again, and joins
// the consumers. Nothing is lost; the call has no time bound.
//
// ShutdownForcefully signals cancellation, closes the queue to wake any
// blocked worker, and waits for all workers behind a single budget
// (WithJoinBudget, default 5s). Items still in flight may be lost. The call
// returns within roughly the budget even if workers are stuck.
//
// # Statistics
//
// Stats is safe to read in any state:
//
//	stats := p.Stats()
//	fmt.Printf("in transit: %d\n", stats.ItemsInTransit)
//
// TotalProduced counts confirmed enqueues, TotalConsumed counts items
// appended to destinations, and ItemsInTransit is their difference: zero
// after a graceful shutdown.
//
// # Concurrency Guarantees
//
// The pipeline guarantees:
//   - Queue occupancy never exceeds capacity
//   - FIFO delivery: with one producer and one consumer the destination
//     equals the source in order
//   - No item is lost or duplicated under graceful shutdown
//   - Destination appends are serialized by a dedicated lock
//   - Consumers start before producers, so the queue cannot fill with
//     nobody draining it
//
// # Error Handling
//
// Worker failures are recovered at the worker's top level, logged with the
// worker id and its progress counters, and end only that worker. The
// pipeline does not restart dead workers; a consumer that dies mid-stream
// can stall a graceful drain, which is surfaced by the logs rather than
// masked with a timeout.
package pipeline
