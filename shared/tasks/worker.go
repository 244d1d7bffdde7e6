package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/shared/models"
	"github.com/roomly/booking-system/shared/telemetry"
)

// Worker executes tasks and drives chain continuation. It is safe for
// concurrent use: broker consumers may call Process from many goroutines.
type Worker struct {
	registry *Registry
	queue    Queue
	logger   *zap.Logger
}

// NewWorker creates a worker dispatching into the given registry. The
// queue is used to enqueue chain continuations and failure routes.
func NewWorker(registry *Registry, queue Queue, logger *zap.Logger) *Worker {
	return &Worker{
		registry: registry,
		queue:    queue,
		logger:   logger,
	}
}

// Process runs a single delivered task. A non-nil return tells the broker
// the delivery failed and the message may be redelivered.
func (w *Worker) Process(ctx context.Context, task *Task) error {
	reg, ok := w.registry.lookup(task.Name)
	if !ok {
		// Redelivery cannot fix an unregistered task; drop it.
		w.logger.Error("dropping unknown task",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID.String()))
		return nil
	}

	start := time.Now()
	run := func() error {
		return reg.handler.Handle(ctx, task.Args)
	}

	var err error
	if reg.policy != nil {
		err = reg.policy.Execute(ctx, run)
	} else {
		err = run()
	}

	telemetry.RecordCounter(ctx, "tasks_processed_total", "Total tasks processed", 1,
		attribute.String("task", task.Name),
		attribute.Bool("success", err == nil),
	)
	telemetry.RecordHistogram(ctx, "task_duration_seconds", "Task execution duration", time.Since(start).Seconds(),
		attribute.String("task", task.Name),
	)

	if err == nil {
		return w.continueChain(ctx, task)
	}

	if task.OnError == nil {
		// No failure route left: this is either a bare task or the failure
		// route itself. Surface the error so the delivery is not acked.
		w.logger.Error("task failed with no failure route",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID.String()),
			zap.Error(err))
		return err
	}

	w.logger.Warn("task failed, dispatching failure route",
		zap.String("task", task.Name),
		zap.String("task_id", task.ID.String()),
		zap.String("on_error", task.OnError.Name),
		zap.Error(err))

	return w.dispatchOnError(ctx, task, err)
}

func (w *Worker) continueChain(ctx context.Context, task *Task) error {
	if len(task.Remaining) == 0 {
		return nil
	}

	next := &Task{
		Signature:     task.Remaining[0],
		ID:            models.GenerateUUID(),
		Remaining:     task.Remaining[1:],
		OnError:       task.OnError,
		CorrelationID: task.CorrelationID,
		EnqueuedAt:    time.Now(),
	}

	if err := w.queue.Enqueue(ctx, next); err != nil {
		// Failing here leaves the delivery unacked; the broker will
		// redeliver and the idempotent handler re-runs.
		return errors.Wrap(err, "failed to enqueue next chain link")
	}
	return nil
}

func (w *Worker) dispatchOnError(ctx context.Context, task *Task, cause error) error {
	failure := FailureArgs{
		FailedTask: task.Name,
		Reason:     cause.Error(),
		Args:       task.OnError.Args,
	}

	raw, err := json.Marshal(failure)
	if err != nil {
		return errors.Wrap(err, "failed to marshal failure args")
	}

	// The failure route carries no chain tail and no failure route of its
	// own: it runs once per dispatch and never cascades.
	errorTask := &Task{
		Signature:     Signature{Name: task.OnError.Name, Args: raw},
		ID:            models.GenerateUUID(),
		CorrelationID: task.CorrelationID,
		EnqueuedAt:    time.Now(),
	}

	if err := w.queue.Enqueue(ctx, errorTask); err != nil {
		return errors.Wrap(err, "failed to enqueue failure route")
	}

	telemetry.RecordCounter(ctx, "task_failure_routes_total", "Total failure routes dispatched", 1,
		attribute.String("failed_task", task.Name),
		attribute.String("on_error", task.OnError.Name),
	)
	return nil
}
