// Package followup runs best-effort tasks after their triggering request
// has committed. Task failures are logged and never reach the caller.
package followup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Queue is a single-worker in-process task queue with a bounded buffer.
type Queue struct {
	logger  zerolog.Logger
	tasks   chan task
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

func New(logger zerolog.Logger, buffer int, taskTimeout time.Duration) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}
	return &Queue{
		logger:  logger,
		tasks:   make(chan task, buffer),
		timeout: taskTimeout,
	}
}

// Start launches the worker goroutine. The worker drains remaining tasks
// after Close and then exits.
func (q *Queue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for t := range q.tasks {
			q.run(t)
		}
	}()
}

func (q *Queue) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	if err := t.fn(ctx); err != nil {
		q.logger.Error().Err(err).Str("task", t.name).Msg("follow-up task failed")
		return
	}
	q.logger.Debug().Str("task", t.name).Msg("follow-up task done")
}

// Enqueue submits a task. Returns false when the buffer is full or the
// queue is already closed; the caller treats that as a skipped
// best-effort action.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn().Str("task", name).Msg("follow-up queue closed, task dropped")
		return false
	}
	select {
	case q.tasks <- task{name: name, fn: fn}:
		return true
	default:
		q.logger.Warn().Str("task", name).Msg("follow-up queue full, task dropped")
		return false
	}
}

// Close stops accepting tasks and waits for the worker to drain.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.tasks)
		q.mu.Unlock()
	})
	q.wg.Wait()
}
