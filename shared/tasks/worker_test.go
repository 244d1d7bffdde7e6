package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/shared/models"
)

type stepArgs struct {
	Value string `json:"value"`
}

func chainTask(t *testing.T, onError bool, names ...string) *Task {
	t.Helper()
	sigs := make([]Signature, 0, len(names))
	for _, name := range names {
		sig, err := NewSignature(name, stepArgs{Value: name})
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}

	chain := NewChain(sigs...)
	if onError {
		sig, err := NewSignature("compensate", stepArgs{Value: "compensate"})
		require.NoError(t, err)
		chain.OnError(sig)
	}

	task, err := chain.Task(models.GenerateUUID())
	require.NoError(t, err)
	return task
}

func TestChain_Task(t *testing.T) {
	t.Run("first link carries the tail and the failure route", func(t *testing.T) {
		task := chainTask(t, true, "step1", "step2", "step3")

		assert.Equal(t, "step1", task.Name)
		require.Len(t, task.Remaining, 2)
		assert.Equal(t, "step2", task.Remaining[0].Name)
		assert.Equal(t, "step3", task.Remaining[1].Name)
		require.NotNil(t, task.OnError)
		assert.Equal(t, "compensate", task.OnError.Name)
		assert.NotEmpty(t, task.ID)
		assert.False(t, task.EnqueuedAt.IsZero())
	})

	t.Run("empty chain is rejected", func(t *testing.T) {
		_, err := NewChain().Task(models.GenerateUUID())
		assert.Error(t, err)
	})
}

func TestWorker_Process(t *testing.T) {
	newHarness := func(t *testing.T) (*Registry, *MemoryQueue, *Worker) {
		t.Helper()
		registry := NewRegistry()
		queue := NewMemoryQueue(16)
		return registry, queue, NewWorker(registry, queue, zap.NewNop())
	}

	t.Run("runs every link in order", func(t *testing.T) {
		registry, queue, worker := newHarness(t)

		var order []string
		record := func(name string) Handler {
			return HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
				order = append(order, name)
				return nil
			})
		}
		registry.Register("step1", record("step1"))
		registry.Register("step2", record("step2"))
		registry.Register("step3", record("step3"))

		task := chainTask(t, false, "step1", "step2", "step3")
		require.NoError(t, queue.Enqueue(context.Background(), task))
		require.NoError(t, queue.Drain(context.Background(), worker))

		assert.Equal(t, []string{"step1", "step2", "step3"}, order)
	})

	t.Run("dispatches the failure route exactly once", func(t *testing.T) {
		registry, queue, worker := newHarness(t)

		compensations := 0
		var failure FailureArgs
		registry.Register("step1", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			return errors.New("boom")
		}))
		registry.Register("step2", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			t.Fatal("later links must not run after a failure")
			return nil
		}))
		registry.Register("compensate", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			compensations++
			require.NoError(t, json.Unmarshal(args, &failure))
			return nil
		}))

		task := chainTask(t, true, "step1", "step2")
		require.NoError(t, queue.Enqueue(context.Background(), task))
		require.NoError(t, queue.Drain(context.Background(), worker))

		assert.Equal(t, 1, compensations)
		assert.Equal(t, "step1", failure.FailedTask)
		assert.Equal(t, "boom", failure.Reason)

		// The failure route carries the args bound at chain-build time
		var args stepArgs
		require.NoError(t, json.Unmarshal(failure.Args, &args))
		assert.Equal(t, "compensate", args.Value)
	})

	t.Run("mid-chain failure routes from the failing link", func(t *testing.T) {
		registry, queue, worker := newHarness(t)

		var failure FailureArgs
		registry.Register("step1", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			return nil
		}))
		registry.Register("step2", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			return errors.New("late failure")
		}))
		registry.Register("compensate", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			require.NoError(t, json.Unmarshal(args, &failure))
			return nil
		}))

		task := chainTask(t, true, "step1", "step2")
		require.NoError(t, queue.Enqueue(context.Background(), task))
		require.NoError(t, queue.Drain(context.Background(), worker))

		assert.Equal(t, "step2", failure.FailedTask)
	})

	t.Run("failure without a route is surfaced", func(t *testing.T) {
		registry, _, worker := newHarness(t)

		registry.Register("step1", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			return errors.New("boom")
		}))

		task := chainTask(t, false, "step1")
		err := worker.Process(context.Background(), task)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("unknown task is dropped", func(t *testing.T) {
		_, _, worker := newHarness(t)

		task := chainTask(t, false, "unregistered")
		err := worker.Process(context.Background(), task)

		assert.NoError(t, err)
	})

	t.Run("retry policy applies per delivery", func(t *testing.T) {
		registry, queue, worker := newHarness(t)

		calls := 0
		registry.Register("step1", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}), WithRetryPolicy(RetryPolicy{
			Attempts:  5,
			BaseDelay: time.Millisecond,
			MaxDelay:  5 * time.Millisecond,
		}))

		task := chainTask(t, false, "step1")
		require.NoError(t, queue.Enqueue(context.Background(), task))
		require.NoError(t, queue.Drain(context.Background(), worker))

		assert.Equal(t, 3, calls)
	})

	t.Run("continuation keeps the correlation id and failure route", func(t *testing.T) {
		registry, queue, worker := newHarness(t)

		registry.Register("step1", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			return nil
		}))

		task := chainTask(t, true, "step1", "step2")
		correlationID := task.CorrelationID

		require.NoError(t, worker.Process(context.Background(), task))

		require.Equal(t, 1, queue.Len())
		next := <-queue.tasks
		assert.Equal(t, "step2", next.Name)
		assert.Empty(t, next.Remaining)
		assert.Equal(t, correlationID, next.CorrelationID)
		require.NotNil(t, next.OnError)
		assert.Equal(t, "compensate", next.OnError.Name)
		assert.NotEqual(t, task.ID, next.ID)
	})

	t.Run("failure route task never cascades", func(t *testing.T) {
		registry, queue, worker := newHarness(t)

		registry.Register("step1", HandlerFunc(func(ctx context.Context, args json.RawMessage) error {
			return errors.New("boom")
		}))

		task := chainTask(t, true, "step1")
		require.NoError(t, worker.Process(context.Background(), task))

		require.Equal(t, 1, queue.Len())
		errorTask := <-queue.tasks
		assert.Equal(t, "compensate", errorTask.Name)
		assert.Nil(t, errorTask.OnError)
		assert.Empty(t, errorTask.Remaining)
	})
}
