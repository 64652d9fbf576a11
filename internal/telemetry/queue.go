package telemetry

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of fire-and-forget background work. Run outcomes surface only
// to logging, never to the caller.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// DispatchQueue is a bounded background task queue for notification dispatch
// and other fire-and-forget side effects. Enqueue never blocks: a full queue
// drops the task with a log line. Failures are logged, never retried.
type DispatchQueue struct {
	tasks  chan Task
	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatchQueue creates a queue with the given capacity and starts its worker.
func NewDispatchQueue(capacity int, logger *slog.Logger) *DispatchQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &DispatchQueue{
		tasks:  make(chan Task, capacity),
		logger: logger,
		cancel: cancel,
	}

	q.wg.Add(1)
	go q.worker(ctx)
	return q
}

func (q *DispatchQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for task := range q.tasks {
		if err := task.Run(ctx); err != nil {
			q.logger.Warn("dispatch task failed", "task", task.Name, "error", err)
		}
	}
}

// Enqueue submits a task without blocking. Returns false if the queue is full
// or closed and the task was dropped.
func (q *DispatchQueue) Enqueue(task Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.tasks <- task:
		return true
	default:
		q.logger.Warn("dispatch queue full, task dropped", "task", task.Name)
		return false
	}
}

// Close stops accepting tasks and waits for queued work to drain.
func (q *DispatchQueue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.tasks)
		q.wg.Wait()
		q.cancel()
	})
}
