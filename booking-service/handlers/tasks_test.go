package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/application"
	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/booking-service/mocks"
	"github.com/roomly/booking-system/shared/tasks"
)

func newTaskHandlers(t *testing.T, repo *mocks.MockBookingRepository, gateway *mocks.MockPaymentGateway, publisher *mocks.MockPublisher) *BookingTaskHandlers {
	t.Helper()
	logger := zap.NewNop()
	return NewBookingTaskHandlers(
		application.NewProcessPayment(repo, gateway, publisher, logger),
		application.NewSendConfirmation(repo, publisher, logger),
		application.NewCancelBooking(repo, publisher, logger),
		tasks.RetryPolicy{Attempts: 5},
		tasks.RetryPolicy{Attempts: 3},
	)
}

func TestBookingTaskHandlers_MalformedArgsArePermanent(t *testing.T) {
	handlers := newTaskHandlers(t,
		mocks.NewMockBookingRepository(t),
		mocks.NewMockPaymentGateway(t),
		mocks.NewMockPublisher(t))

	garbage := json.RawMessage(`{"booking_id":"seven"}`)

	for name, handle := range map[string]func(context.Context, json.RawMessage) error{
		"process payment":   handlers.HandleProcessPayment,
		"send confirmation": handlers.HandleSendConfirmation,
		"cancel booking":    handlers.HandleCancelBooking,
	} {
		t.Run(name, func(t *testing.T) {
			err := handle(context.Background(), garbage)
			require.Error(t, err)
			assert.True(t, tasks.IsPermanent(err), "retrying cannot fix malformed args")
		})
	}
}

func TestBookingTaskHandlers_HandleCancelBooking(t *testing.T) {
	repo := mocks.NewMockBookingRepository(t)
	publisher := mocks.NewMockPublisher(t)
	handlers := newTaskHandlers(t, repo, mocks.NewMockPaymentGateway(t), publisher)

	booking, err := domain.NewBooking("Alice Johnson", "alice@example.com", "+1-555-0100")
	require.NoError(t, err)
	booking.ID = 8

	repo.EXPECT().FindByID(mock.Anything, int64(8)).Return(booking, nil).Once()
	repo.EXPECT().Save(mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.Status == domain.BookingStatusCancelled
	})).Return(nil).Once()
	publisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil).Once()

	// The failure route receives FailureArgs wrapping the original task args
	inner, err := json.Marshal(application.BookingTaskArgs{BookingID: 8})
	require.NoError(t, err)
	args, err := json.Marshal(tasks.FailureArgs{
		FailedTask: application.TaskProcessPayment,
		Reason:     "card declined",
		Args:       inner,
	})
	require.NoError(t, err)

	err = handlers.HandleCancelBooking(context.Background(), args)
	assert.NoError(t, err)
}

func TestBookingTaskHandlers_Register(t *testing.T) {
	repo := mocks.NewMockBookingRepository(t)
	handlers := newTaskHandlers(t, repo, mocks.NewMockPaymentGateway(t), mocks.NewMockPublisher(t))

	registry := tasks.NewRegistry()
	handlers.Register(registry)

	queue := tasks.NewMemoryQueue(4)
	worker := tasks.NewWorker(registry, queue, zap.NewNop())

	// All three task names resolve; an absent booking makes each a no-op
	repo.EXPECT().FindByID(mock.Anything, int64(999)).Return(nil, nil).Times(3)

	args := application.BookingTaskArgs{BookingID: 999}
	for _, name := range []string{application.TaskProcessPayment, application.TaskSendConfirmation} {
		sig, err := tasks.NewSignature(name, args)
		require.NoError(t, err)
		task, err := tasks.NewChain(sig).Task("")
		require.NoError(t, err)
		assert.NoError(t, worker.Process(context.Background(), task))
	}

	inner, err := json.Marshal(args)
	require.NoError(t, err)
	sig, err := tasks.NewSignature(application.TaskCancelBooking, tasks.FailureArgs{
		FailedTask: application.TaskProcessPayment,
		Reason:     "card declined",
		Args:       inner,
	})
	require.NoError(t, err)
	task, err := tasks.NewChain(sig).Task("")
	require.NoError(t, err)
	assert.NoError(t, worker.Process(context.Background(), task))
}
