package tasks

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultMemoryQueueBuffer = 256

// MemoryQueue is a channel-backed task queue for local runs and tests. It
// gives the same at-least-once, unordered-across-chains semantics as the
// broker-backed queue, minus durability.
type MemoryQueue struct {
	tasks chan *Task
}

// NewMemoryQueue creates a memory queue with the given buffer size.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = defaultMemoryQueueBuffer
	}
	return &MemoryQueue{tasks: make(chan *Task, buffer)}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("memory queue is full")
	}
}

// Run consumes tasks until the context ends. Failed deliveries are
// redelivered once; a second failure drops the task so a broken failure
// route cannot spin the loop.
func (q *MemoryQueue) Run(ctx context.Context, worker *Worker, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			if task == nil {
				return
			}
			if err := worker.Process(ctx, task); err != nil {
				if err := worker.Process(ctx, task); err != nil {
					logger.Error("dropping task after redelivery",
						zap.String("task", task.Name),
						zap.String("task_id", task.ID.String()),
						zap.Error(err))
				}
			}
		}
	}
}

// Drain synchronously processes queued tasks until the queue is empty,
// including chain links enqueued while draining. It returns the first
// processing error.
func (q *MemoryQueue) Drain(ctx context.Context, worker *Worker) error {
	for {
		select {
		case task := <-q.tasks:
			if err := worker.Process(ctx, task); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Len reports the number of queued tasks.
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}
