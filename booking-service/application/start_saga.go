package application

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/shared/models"
	"github.com/roomly/booking-system/shared/tasks"
)

// Task names for the booking workflow.
const (
	TaskProcessPayment   = "booking.process_payment"
	TaskSendConfirmation = "booking.send_confirmation"
	TaskCancelBooking    = "booking.cancel_booking"
)

// BookingTaskArgs is the argument payload shared by all booking tasks.
type BookingTaskArgs struct {
	BookingID int64 `json:"booking_id"`
}

// StartBookingSaga schedules the booking workflow: process payment, then
// send confirmation, with cancellation as the failure route. Execute is
// fire-and-forget; it returns once the first task is enqueued and the
// outcome is observable only through the booking status.
type StartBookingSaga struct {
	queue  tasks.Queue
	logger *zap.Logger
}

// NewStartBookingSaga creates a new StartBookingSaga use case
func NewStartBookingSaga(queue tasks.Queue, logger *zap.Logger) *StartBookingSaga {
	return &StartBookingSaga{
		queue:  queue,
		logger: logger,
	}
}

// Execute builds the workflow chain for the booking and enqueues it
func (uc *StartBookingSaga) Execute(ctx context.Context, bookingID int64) error {
	args := BookingTaskArgs{BookingID: bookingID}

	payment, err := tasks.NewSignature(TaskProcessPayment, args)
	if err != nil {
		return err
	}
	confirmation, err := tasks.NewSignature(TaskSendConfirmation, args)
	if err != nil {
		return err
	}
	// The cancellation signature is bound now so the failure route always
	// knows which booking to roll back.
	cancellation, err := tasks.NewSignature(TaskCancelBooking, args)
	if err != nil {
		return err
	}

	task, err := tasks.NewChain(payment, confirmation).
		OnError(cancellation).
		Task(models.GenerateUUID())
	if err != nil {
		return errors.Wrap(err, "failed to build booking chain")
	}

	if err := uc.queue.Enqueue(ctx, task); err != nil {
		return errors.Wrap(err, "failed to enqueue booking saga")
	}

	uc.logger.Info("booking saga scheduled",
		zap.Int64("booking_id", bookingID),
		zap.String("task_id", task.ID.String()),
		zap.String("correlation_id", task.CorrelationID.String()))
	return nil
}
