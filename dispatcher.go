package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZutrixPog/llmdispatch/queue"
	"github.com/ZutrixPog/llmdispatch/queue/mem"
	serial "github.com/ZutrixPog/llmdispatch/serialization"
	"github.com/google/uuid"
)

const BatchPrefix = "batch-"

type Config struct {
	// Concurrency is the maximum number of tasks in flight at once.
	Concurrency int

	// MaxAttempts bounds the tries per task, the first one included.
	MaxAttempts int

	// Backoff is the fixed wait between two attempts of the same task.
	Backoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

type Option func(*Dispatcher)

// WithQueue replaces the in-process queue, e.g. with a redis list.
func WithQueue(q queue.TaskQueue) Option {
	return func(d *Dispatcher) {
		if q != nil {
			d.queue = q
		}
	}
}

func WithCodec(c serial.Codec) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.codec = c
		}
	}
}

func WithValidator(v ResponseValidator) Option {
	return func(d *Dispatcher) {
		if v != nil {
			d.validator = v
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher spreads a batch of tasks over an endpoint pool with bounded
// concurrency. Each RunAll call is an independent batch.
type Dispatcher struct {
	pool      *EndpointPool
	config    Config
	queue     queue.TaskQueue
	codec     serial.Codec
	validator ResponseValidator
	observer  Observer
	logger    *slog.Logger
}

func Default(pool *EndpointPool) (*Dispatcher, error) {
	return New(pool, DefaultConfig())
}

// New checks the configuration up front; a dispatcher that exists is always
// able to run.
func New(pool *EndpointPool, config Config, opts ...Option) (*Dispatcher, error) {
	if pool == nil || pool.Len() == 0 {
		return nil, ErrNoEndpoints
	}
	if config.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, config.Concurrency)
	}
	if config.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAttempts, config.MaxAttempts)
	}

	d := &Dispatcher{
		pool:      pool,
		config:    config,
		queue:     mem.NewQueue(0),
		codec:     serial.Gob{},
		validator: NewJSONValidator(DefaultAnchor),
		observer:  NopObserver{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// RunAll dispatches tasks and returns once every task has a terminal outcome.
// Successful payloads are listed in completion order; failed tasks are only
// counted and described. A non-nil error means nothing was dispatched.
func (d *Dispatcher) RunAll(ctx context.Context, tasks []Task) (*Report, error) {
	if err := checkTasks(tasks); err != nil {
		return nil, err
	}

	batch := BatchPrefix + uuid.NewString()
	logger := d.logger.With("batch", batch)

	executor, err := NewExecutor(d.pool, d.validator, d.config.MaxAttempts, d.config.Backoff, d.observer)
	if err != nil {
		return nil, err
	}

	if err := d.enqueue(batch, tasks); err != nil {
		return nil, err
	}

	logger.Info("dispatching batch",
		"tasks", len(tasks),
		"endpoints", d.pool.Len(),
		"concurrency", d.config.Concurrency,
		"max_attempts", d.config.MaxAttempts)

	pending := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		pending[t.ID] = struct{}{}
	}

	c := newCollector(batch, len(tasks), d.observer)
	workers := NewPool(d.config.Concurrency)

	for {
		data, err := d.queue.Pop(batch)
		if errors.Is(err, queue.ErrEmptyQueue) {
			break
		}
		if err != nil {
			logger.Error("failed to pop task, abandoning the rest of the queue", "error", err)
			break
		}

		var task Task
		if err := d.codec.Decode(data, &task); err != nil {
			logger.Error("dropping undecodable queue entry", "error", err)
			continue
		}
		if _, ok := pending[task.ID]; !ok {
			logger.Warn("ignoring queue entry that is not part of the batch", "task_id", task.ID)
			continue
		}
		delete(pending, task.ID)

		workers.Submit(func() {
			d.observer.TaskStarted(task)
			c.record(executor.Run(ctx, task))
		})
	}

	workers.Wait()
	workers.Release()

	for _, t := range tasks {
		if _, ok := pending[t.ID]; ok {
			now := time.Now()
			c.record(failure(t.ID, ErrTaskLost, 0, "", now))
		}
	}
	if err := d.queue.Purge(batch); err != nil {
		logger.Warn("failed to purge batch channel", "error", err)
	}

	report := c.report()
	logger.Info("batch finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed)

	return report, nil
}

func (d *Dispatcher) enqueue(batch string, tasks []Task) error {
	for _, t := range tasks {
		data, err := d.codec.Encode(t)
		if err == nil {
			_, err = d.queue.Push(batch, data)
		}
		if err != nil {
			if perr := d.queue.Purge(batch); perr != nil {
				d.logger.Warn("failed to purge batch channel", "batch", batch, "error", perr)
			}
			return fmt.Errorf("enqueue task %s: %w", t.ID, err)
		}
	}
	return nil
}

func checkTasks(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task at index %d", ErrEmptyID, i)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("%w: %s", ErrTaskAlreadyExists, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// collector accumulates outcomes. TaskFinished is called under the lock so
// observers see progress snapshots in order and never concurrently.
type collector struct {
	mu       sync.Mutex
	progress Progress
	payloads []json.RawMessage
	failures []Failure
	observer Observer
}

func newCollector(batch string, total int, observer Observer) *collector {
	return &collector{
		progress: Progress{Batch: batch, Total: total},
		payloads: make([]json.RawMessage, 0, total),
		observer: observer,
	}
}

func (c *collector) record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.Succeeded() {
		c.progress.Succeeded++
		c.payloads = append(c.payloads, o.Payload)
	} else {
		c.progress.Failed++
		c.failures = append(c.failures, Failure{
			TaskID:   o.TaskID,
			Reason:   o.Reason(),
			Attempts: o.Attempts,
		})
	}

	c.observer.TaskFinished(o, c.progress)
}

func (c *collector) report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &Report{
		Batch:     c.progress.Batch,
		Payloads:  c.payloads,
		Succeeded: c.progress.Succeeded,
		Failed:    c.progress.Failed,
		Failures:  c.failures,
	}
}
