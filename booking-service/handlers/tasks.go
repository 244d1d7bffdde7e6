package handlers

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/roomly/booking-system/booking-service/application"
	"github.com/roomly/booking-system/shared/tasks"
)

// BookingTaskHandlers binds the workflow task names to their use cases.
type BookingTaskHandlers struct {
	processPayment   *application.ProcessPayment
	sendConfirmation *application.SendConfirmation
	cancelBooking    *application.CancelBooking

	paymentRetry      tasks.RetryPolicy
	confirmationRetry tasks.RetryPolicy
}

// NewBookingTaskHandlers creates new booking task handlers
func NewBookingTaskHandlers(
	processPayment *application.ProcessPayment,
	sendConfirmation *application.SendConfirmation,
	cancelBooking *application.CancelBooking,
	paymentRetry tasks.RetryPolicy,
	confirmationRetry tasks.RetryPolicy,
) *BookingTaskHandlers {
	return &BookingTaskHandlers{
		processPayment:    processPayment,
		sendConfirmation:  sendConfirmation,
		cancelBooking:     cancelBooking,
		paymentRetry:      paymentRetry,
		confirmationRetry: confirmationRetry,
	}
}

// Register wires the handlers into the registry. Payment and confirmation
// carry retry policies; the cancellation route runs once per dispatch and
// never retries itself.
func (h *BookingTaskHandlers) Register(registry *tasks.Registry) {
	registry.Register(application.TaskProcessPayment,
		tasks.HandlerFunc(h.HandleProcessPayment),
		tasks.WithRetryPolicy(h.paymentRetry))
	registry.Register(application.TaskSendConfirmation,
		tasks.HandlerFunc(h.HandleSendConfirmation),
		tasks.WithRetryPolicy(h.confirmationRetry))
	registry.Register(application.TaskCancelBooking,
		tasks.HandlerFunc(h.HandleCancelBooking))
}

// HandleProcessPayment handles booking.process_payment tasks
func (h *BookingTaskHandlers) HandleProcessPayment(ctx context.Context, args json.RawMessage) error {
	var taskArgs application.BookingTaskArgs
	if err := json.Unmarshal(args, &taskArgs); err != nil {
		return tasks.Permanent(errors.Wrap(err, "failed to parse process payment args"))
	}

	return h.processPayment.Execute(ctx, &application.ProcessPaymentCommand{
		BookingID: taskArgs.BookingID,
	})
}

// HandleSendConfirmation handles booking.send_confirmation tasks
func (h *BookingTaskHandlers) HandleSendConfirmation(ctx context.Context, args json.RawMessage) error {
	var taskArgs application.BookingTaskArgs
	if err := json.Unmarshal(args, &taskArgs); err != nil {
		return tasks.Permanent(errors.Wrap(err, "failed to parse send confirmation args"))
	}

	return h.sendConfirmation.Execute(ctx, &application.SendConfirmationCommand{
		BookingID: taskArgs.BookingID,
	})
}

// HandleCancelBooking handles booking.cancel_booking tasks dispatched as
// the chain's failure route
func (h *BookingTaskHandlers) HandleCancelBooking(ctx context.Context, args json.RawMessage) error {
	var failure tasks.FailureArgs
	if err := json.Unmarshal(args, &failure); err != nil {
		return tasks.Permanent(errors.Wrap(err, "failed to parse failure args"))
	}

	var taskArgs application.BookingTaskArgs
	if err := json.Unmarshal(failure.Args, &taskArgs); err != nil {
		return tasks.Permanent(errors.Wrap(err, "failed to parse cancel booking args"))
	}

	return h.cancelBooking.Execute(ctx, &application.CancelBookingCommand{
		BookingID:  taskArgs.BookingID,
		FailedStep: failure.FailedTask,
		Reason:     failure.Reason,
	})
}
