// Package jobs provides the in-process queue that runs storefront background
// work, currently image re-encodes, on a fixed pool of workers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrQueueFull is returned when the queue cannot accept more work.
	ErrQueueFull = errors.New("job queue: queue is full")
	// ErrQueueClosed is returned once the queue has been shut down.
	ErrQueueClosed = errors.New("job queue: queue is closed")
)

// Task is one unit of background work.
type Task struct {
	ID  string
	Run func(ctx context.Context)
}

// QueueDeps configures the queue.
type QueueDeps struct {
	Size    int
	Workers int
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// Queue dispatches tasks to a fixed pool of workers over a bounded channel.
// Enqueue never blocks; a full queue is reported to the caller instead.
type Queue struct {
	mu      sync.Mutex
	tasks   chan Task
	closed  bool
	wg      sync.WaitGroup
	workers int
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewQueue constructs a queue with the given buffer size and worker count.
func NewQueue(deps QueueDeps) (*Queue, error) {
	if deps.Size <= 0 {
		return nil, errors.New("job queue: size must be positive")
	}
	if deps.Workers <= 0 {
		return nil, errors.New("job queue: workers must be positive")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Queue{
		tasks:   make(chan Task, deps.Size),
		workers: deps.Workers,
		logger:  logger,
	}, nil
}

// Start launches the worker pool. Workers run until Close drains the queue;
// ctx is the base context handed to every task.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for task := range q.tasks {
				q.run(ctx, task)
			}
		}()
	}
}

// Enqueue submits a task without blocking.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		q.logger(ctx, "job_enqueued", map[string]any{"job_id": task.ID})
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting work and waits for queued tasks to drain, bounded by
// ctx.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger(ctx, "job_panic", map[string]any{
				"job_id": task.ID,
				"panic":  fmt.Sprintf("%v", rec),
			})
		}
	}()
	if task.Run == nil {
		return
	}
	task.Run(ctx)
}
