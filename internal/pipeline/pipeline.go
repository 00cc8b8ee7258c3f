package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryankumar/conveyor/internal/queue"
	"github.com/aryankumar/conveyor/internal/util"
)

// Default timeouts governing worker blocking behavior
// Producers retry short put timeouts so cancellation is observed promptly;
// consumers poll with a slightly longer get timeout
const (
	// DefaultPutTimeout bounds each producer enqueue attempt
	DefaultPutTimeout = 500 * time.Millisecond

	// DefaultGetTimeout bounds each consumer dequeue attempt
	DefaultGetTimeout = time.Second

	// DefaultJoinBudget bounds how long ShutdownForcefully waits for workers
	DefaultJoinBudget = 5 * time.Second
)

var (
	// ErrStarted is returned when an operation requires the pipeline to not
	// have been started yet
	ErrStarted = errors.New("pipeline already started")

	// ErrNotRunning is returned when an operation requires a running pipeline
	ErrNotRunning = errors.New("pipeline is not running")
)

// State identifies where the pipeline is in its lifecycle
type State int

const (
	// StateConfigured means workers can still be registered
	StateConfigured State = iota

	// StateRunning means workers are executing
	StateRunning

	// StateShuttingDown means a shutdown is in progress
	StateShuttingDown

	// StateStopped is terminal
	StateStopped
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// message is the envelope moved through the queue
// Stop messages are injected during graceful shutdown, one per consumer;
// they are acknowledged like items but never reach a destination
type message[T any] struct {
	payload T
	stop    bool
}

// Options configures pipeline behavior
type Options struct {
	// Logger receives lifecycle and worker events (nil means slog.Default())
	Logger *slog.Logger

	// PutTimeout bounds each producer enqueue attempt
	PutTimeout time.Duration

	// GetTimeout bounds each consumer dequeue attempt
	GetTimeout time.Duration

	// JoinBudget bounds how long ShutdownForcefully waits for workers to exit
	JoinBudget time.Duration
}

// Option is a functional option for configuring a Pipeline
type Option func(*Options)

// WithLogger sets the logger used for lifecycle and worker events
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithPutTimeout sets the per-attempt enqueue timeout used by producers
func WithPutTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PutTimeout = d
	}
}

// WithGetTimeout sets the per-attempt dequeue timeout used by consumers
func WithGetTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.GetTimeout = d
	}
}

// WithJoinBudget sets the total time ShutdownForcefully waits for workers
func WithJoinBudget(d time.Duration) Option {
	return func(o *Options) {
		o.JoinBudget = d
	}
}

// Pipeline coordinates producer and consumer workers around one bounded queue
// It owns the queue, the cooperative cancellation signal, and the lock
// serializing destination appends
//
// A Pipeline moves through StateConfigured, StateRunning, StateShuttingDown,
// and StateStopped exactly once; it is not reusable after shutdown
type Pipeline[T any] struct {
	queue *queue.Bounded[message[T]]

	producers []*Producer[T]
	consumers []*Consumer[T]

	// mu guards state and the worker slices
	mu    sync.Mutex
	state State

	// stop is the cooperative cancellation signal shared with every worker
	stop     chan struct{}
	stopOnce sync.Once

	// destMu serializes appends to the consumer destinations
	destMu sync.Mutex

	producerWG sync.WaitGroup
	consumerWG sync.WaitGroup

	opts   Options
	runID  string
	logger *slog.Logger
}

// New creates a pipeline around a bounded queue of the given capacity
// The pipeline starts in StateConfigured; register workers with AddProducer
// and AddConsumer, then call Start
func New[T any](capacity int, opts ...Option) (*Pipeline[T], error) {
	options := Options{
		PutTimeout: DefaultPutTimeout,
		GetTimeout: DefaultGetTimeout,
		JoinBudget: DefaultJoinBudget,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	q, err := queue.New[message[T]](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue: %w", err)
	}

	runID := uuid.NewString()

	return &Pipeline[T]{
		queue:  q,
		state:  StateConfigured,
		stop:   make(chan struct{}),
		opts:   options,
		runID:  runID,
		logger: options.Logger.With("run_id", runID),
	}, nil
}

// AddProducer registers a worker that feeds the items of source through the
// queue in order, pausing delay before each item. An empty id is replaced
// with a generated one. Registration is only valid before Start.
func (p *Pipeline[T]) AddProducer(id string, source []T, delay time.Duration) (*Producer[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateConfigured {
		return nil, ErrStarted
	}

	if id == "" {
		id = util.WorkerID("producer", len(p.producers)+1)
	}

	prod := &Producer[T]{
		id:     id,
		source: source,
		delay:  delay,
	}
	p.producers = append(p.producers, prod)
	p.logger.Debug("producer registered", "worker", id, "items", len(source))

	return prod, nil
}

// AddConsumer registers a worker that drains queue items into dest, pausing
// delay per item before appending. All consumers may share one destination or
// use separate ones; appends are serialized either way. An empty id is
// replaced with a generated one. Registration is only valid before Start.
func (p *Pipeline[T]) AddConsumer(id string, dest *[]T, delay time.Duration) (*Consumer[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateConfigured {
		return nil, ErrStarted
	}

	if dest == nil {
		return nil, fmt.Errorf("consumer destination must not be nil")
	}

	if id == "" {
		id = util.WorkerID("consumer", len(p.consumers)+1)
	}

	cons := &Consumer[T]{
		id:    id,
		dest:  dest,
		delay: delay,
	}
	p.consumers = append(p.consumers, cons)
	p.logger.Debug("consumer registered", "worker", id)

	return cons, nil
}

// Start launches every registered consumer, then every producer, and moves
// the pipeline to StateRunning
// Consumers start first so producers can never fill the queue with nobody
// around to drain it
func (p *Pipeline[T]) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateConfigured {
		return ErrStarted
	}

	p.logger.Info("starting pipeline",
		"producers", len(p.producers),
		"consumers", len(p.consumers),
		"capacity", p.queue.Cap())

	for _, cons := range p.consumers {
		p.consumerWG.Add(1)
		go func(cons *Consumer[T]) {
			defer p.consumerWG.Done()
			cons.run(p)
		}(cons)
	}

	for _, prod := range p.producers {
		p.producerWG.Add(1)
		go func(prod *Producer[T]) {
			defer p.producerWG.Done()
			prod.run(p)
		}(prod)
	}

	p.state = StateRunning
	return nil
}

// ShutdownGracefully drains the pipeline without losing a single item and
// then stops every worker. Valid only from StateRunning.
//
// Sequence: wait for producers to exhaust their sources, wait for everything
// enqueued to be fully processed, enqueue one stop message per consumer, wait
// for the stop messages to be confirmed consumed, then join the consumer
// goroutines. There is no time bound; if a worker is permanently stuck this
// call blocks, which indicates a defect elsewhere.
func (p *Pipeline[T]) ShutdownGracefully() error {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.state = StateShuttingDown
	consumers := make([]*Consumer[T], len(p.consumers))
	copy(consumers, p.consumers)
	p.mu.Unlock()

	p.logger.Info("graceful shutdown started")

	// Producers finish their sources naturally.
	p.producerWG.Wait()
	p.logger.Debug("all producers finished")

	// Everything enqueued so far must be fully processed before the stop
	// messages go in, so no consumer can exit with items still queued.
	if err := p.queue.DrainWait(); err != nil {
		return util.WrapErrorf(err, "draining items")
	}

	for _, cons := range consumers {
		if err := p.putStop(cons.id); err != nil {
			return err
		}
	}
	p.logger.Debug("all stop messages enqueued", "count", len(consumers))

	if err := p.queue.DrainWait(); err != nil {
		return util.WrapErrorf(err, "draining stop messages")
	}

	p.consumerWG.Wait()

	p.setState(StateStopped)
	p.logger.Info("graceful shutdown complete", "stats", p.Stats().String())
	return nil
}

// putStop enqueues one stop message, retrying timed-out attempts until it
// goes in. Any consumer may end up taking it; id only attributes errors.
func (p *Pipeline[T]) putStop(id string) error {
	for {
		ok, err := p.queue.Put(message[T]{stop: true}, p.opts.PutTimeout)
		if err != nil {
			return &util.WorkerError{
				WorkerID: id,
				Err:      fmt.Errorf("failed to send stop message: %w", err),
			}
		}
		if ok {
			return nil
		}
		p.logger.Debug("queue full, retrying stop message", "worker", id)
	}
}

// ShutdownForcefully stops the pipeline without waiting for in-flight work.
// Valid from StateRunning, or from StateShuttingDown to cut short a graceful
// shutdown that is not making progress.
//
// It signals cancellation to every worker, closes the queue so workers
// blocked inside Put or Get wake immediately, then waits for all worker
// goroutines behind a single collective budget. Items still queued or
// mid-flight may be lost. Returns a timeout error if the budget elapses with
// workers still running; the call returns within roughly the budget either
// way.
func (p *Pipeline[T]) ShutdownForcefully() error {
	p.mu.Lock()
	if p.state != StateRunning && p.state != StateShuttingDown {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.state = StateShuttingDown
	p.mu.Unlock()

	p.logger.Info("forceful shutdown started", "budget", p.opts.JoinBudget)

	p.stopOnce.Do(func() { close(p.stop) })

	// Close wakes workers blocked inside Put or Get; already closed is fine.
	if err := p.queue.Close(); err != nil {
		p.logger.Debug("queue already closed")
	}

	done := make(chan struct{})
	go func() {
		p.producerWG.Wait()
		p.consumerWG.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.opts.JoinBudget)
	defer timer.Stop()

	select {
	case <-done:
		p.setState(StateStopped)
		p.logger.Info("forceful shutdown complete", "stats", p.Stats().String())
		return nil
	case <-timer.C:
		p.setState(StateStopped)
		p.logger.Error("forceful shutdown abandoned running workers",
			"budget", p.opts.JoinBudget)
		return util.WrapErrorf(util.ErrTimeout, "workers still running after %s", p.opts.JoinBudget)
	}
}

// Stats returns a snapshot of pipeline activity
// It is safe to call in any state, including while workers are running
func (p *Pipeline[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var produced, consumed int
	for _, prod := range p.producers {
		produced += prod.Produced()
	}
	for _, cons := range p.consumers {
		consumed += cons.Consumed()
	}

	return Stats{
		NumProducers:   len(p.producers),
		NumConsumers:   len(p.consumers),
		TotalProduced:  produced,
		TotalConsumed:  consumed,
		BufferSize:     p.queue.Len(),
		ItemsInTransit: produced - consumed,
	}
}

// State returns the pipeline's current lifecycle state
func (p *Pipeline[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RunID returns the identifier correlating this pipeline's log lines
func (p *Pipeline[T]) RunID() string {
	return p.runID
}

func (p *Pipeline[T]) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// cancelled reports whether the cancellation signal has been set
func (p *Pipeline[T]) cancelled() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// sleep pauses for d, returning false if cancellation arrives first
// A non-positive d returns true immediately
func (p *Pipeline[T]) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.stop:
		return false
	case <-timer.C:
		return true
	}
}
