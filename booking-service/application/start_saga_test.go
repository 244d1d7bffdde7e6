package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/mocks"
	"github.com/roomly/booking-system/shared/tasks"
)

func TestStartBookingSaga_Execute(t *testing.T) {
	t.Run("enqueues the payment task carrying the rest of the chain", func(t *testing.T) {
		queue := mocks.NewMockQueue(t)

		var captured *tasks.Task
		queue.EXPECT().Enqueue(mock.Anything, mock.Anything).
			Run(func(ctx context.Context, task *tasks.Task) {
				captured = task
			}).Return(nil).Once()

		uc := NewStartBookingSaga(queue, zap.NewNop())
		err := uc.Execute(context.Background(), 7)

		require.NoError(t, err)
		require.NotNil(t, captured)

		assert.Equal(t, TaskProcessPayment, captured.Name)
		assert.NotEmpty(t, captured.ID)
		assert.NotEmpty(t, captured.CorrelationID)

		require.Len(t, captured.Remaining, 1)
		assert.Equal(t, TaskSendConfirmation, captured.Remaining[0].Name)

		require.NotNil(t, captured.OnError)
		assert.Equal(t, TaskCancelBooking, captured.OnError.Name)

		// Every link and the failure route are bound to the same booking.
		var args BookingTaskArgs
		require.NoError(t, json.Unmarshal(captured.Args, &args))
		assert.Equal(t, int64(7), args.BookingID)

		require.NoError(t, json.Unmarshal(captured.Remaining[0].Args, &args))
		assert.Equal(t, int64(7), args.BookingID)

		require.NoError(t, json.Unmarshal(captured.OnError.Args, &args))
		assert.Equal(t, int64(7), args.BookingID)
	})

	t.Run("surfaces an enqueue failure", func(t *testing.T) {
		queue := mocks.NewMockQueue(t)
		queue.EXPECT().Enqueue(mock.Anything, mock.Anything).
			Return(errors.New("broker unavailable")).Once()

		uc := NewStartBookingSaga(queue, zap.NewNop())
		err := uc.Execute(context.Background(), 7)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to enqueue booking saga")
	})
}
