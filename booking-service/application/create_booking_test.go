package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/booking-service/mocks"
	"github.com/roomly/booking-system/shared/events"
	"github.com/roomly/booking-system/shared/tasks"
)

func TestCreateBooking_Execute(t *testing.T) {
	validCmd := &CreateBookingCommand{
		Name:  "Alice Johnson",
		Email: "alice@example.com",
		Phone: "+1-555-0100",
	}

	t.Run("creates the booking and schedules the workflow", func(t *testing.T) {
		repo := mocks.NewMockBookingRepository(t)
		publisher := mocks.NewMockPublisher(t)
		queue := mocks.NewMockQueue(t)

		repo.EXPECT().Save(mock.Anything, mock.Anything).
			Run(func(ctx context.Context, booking *domain.Booking) {
				booking.ID = 41
			}).Return(nil).Once()
		publisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e *events.Event) bool {
			return e.EventType == events.BookingCreatedEvent && e.AggregateID == "41"
		})).Return(nil).Once()
		queue.EXPECT().Enqueue(mock.Anything, mock.MatchedBy(func(task *tasks.Task) bool {
			return task.Name == TaskProcessPayment
		})).Return(nil).Once()

		uc := NewCreateBooking(repo, publisher, NewStartBookingSaga(queue, zap.NewNop()), zap.NewNop())
		response, err := uc.Execute(context.Background(), validCmd)

		require.NoError(t, err)
		assert.Equal(t, int64(41), response.BookingID)
		assert.Equal(t, "Booking process started", response.Message)
	})

	t.Run("rejects an invalid command", func(t *testing.T) {
		repo := mocks.NewMockBookingRepository(t)
		publisher := mocks.NewMockPublisher(t)
		queue := mocks.NewMockQueue(t)

		uc := NewCreateBooking(repo, publisher, NewStartBookingSaga(queue, zap.NewNop()), zap.NewNop())
		response, err := uc.Execute(context.Background(), &CreateBookingCommand{
			Name:  "A",
			Email: "alice@example.com",
			Phone: "+1-555-0100",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid command")
		assert.Nil(t, response)
	})

	t.Run("surfaces a save failure", func(t *testing.T) {
		repo := mocks.NewMockBookingRepository(t)
		publisher := mocks.NewMockPublisher(t)
		queue := mocks.NewMockQueue(t)

		repo.EXPECT().Save(mock.Anything, mock.Anything).
			Return(errors.New("database error")).Once()

		uc := NewCreateBooking(repo, publisher, NewStartBookingSaga(queue, zap.NewNop()), zap.NewNop())
		response, err := uc.Execute(context.Background(), validCmd)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save booking")
		assert.Nil(t, response)
	})

	t.Run("succeeds even when scheduling fails", func(t *testing.T) {
		// The booking is durably pending, so the reconciliation sweep will
		// re-submit it later.
		repo := mocks.NewMockBookingRepository(t)
		publisher := mocks.NewMockPublisher(t)
		queue := mocks.NewMockQueue(t)

		repo.EXPECT().Save(mock.Anything, mock.Anything).
			Run(func(ctx context.Context, booking *domain.Booking) {
				booking.ID = 42
			}).Return(nil).Once()
		publisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil).Once()
		queue.EXPECT().Enqueue(mock.Anything, mock.Anything).
			Return(errors.New("broker unavailable")).Once()

		uc := NewCreateBooking(repo, publisher, NewStartBookingSaga(queue, zap.NewNop()), zap.NewNop())
		response, err := uc.Execute(context.Background(), validCmd)

		require.NoError(t, err)
		assert.Equal(t, int64(42), response.BookingID)
	})

	t.Run("succeeds even when event publishing fails", func(t *testing.T) {
		repo := mocks.NewMockBookingRepository(t)
		publisher := mocks.NewMockPublisher(t)
		queue := mocks.NewMockQueue(t)

		repo.EXPECT().Save(mock.Anything, mock.Anything).
			Run(func(ctx context.Context, booking *domain.Booking) {
				booking.ID = 43
			}).Return(nil).Once()
		publisher.EXPECT().Publish(mock.Anything, mock.Anything).
			Return(errors.New("sns unavailable")).Once()
		queue.EXPECT().Enqueue(mock.Anything, mock.Anything).Return(nil).Once()

		uc := NewCreateBooking(repo, publisher, NewStartBookingSaga(queue, zap.NewNop()), zap.NewNop())
		response, err := uc.Execute(context.Background(), validCmd)

		require.NoError(t, err)
		assert.Equal(t, int64(43), response.BookingID)
	})
}
