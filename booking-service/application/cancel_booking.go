package application

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/shared/events"
)

// CancelBookingCommand represents the command to cancel a booking after a
// workflow failure. FailedStep names the step whose failure triggered the
// cancellation.
type CancelBookingCommand struct {
	BookingID  int64  `json:"booking_id"`
	FailedStep string `json:"failed_step"`
	Reason     string `json:"reason"`
}

// CancelBooking is the compensating step: it rolls a failed workflow back
// by cancelling the booking. It must be idempotent, tolerating duplicate
// dispatch and already-cancelled bookings.
type CancelBooking struct {
	bookingRepository domain.BookingRepository
	eventPublisher    events.Publisher
	logger            *zap.Logger
}

// NewCancelBooking creates a new CancelBooking use case
func NewCancelBooking(
	bookingRepository domain.BookingRepository,
	eventPublisher events.Publisher,
	logger *zap.Logger,
) *CancelBooking {
	return &CancelBooking{
		bookingRepository: bookingRepository,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute cancels the booking. A persistence failure here is surfaced:
// there is no secondary compensator, so swallowing it would leave the
// workflow outcome unrecorded.
func (uc *CancelBooking) Execute(ctx context.Context, cmd *CancelBookingCommand) error {
	booking, err := uc.bookingRepository.FindByID(ctx, cmd.BookingID)
	if err != nil {
		return errors.Wrap(err, "failed to find booking")
	}

	if booking == nil {
		uc.logger.Error("booking not found for cancellation",
			zap.Int64("booking_id", cmd.BookingID),
			zap.String("failed_step", cmd.FailedStep))
		return nil
	}

	if booking.IsTerminal() {
		uc.logger.Info("skipping cancellation for terminal booking",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", string(booking.Status)))
		return nil
	}

	if err := booking.Cancel(cmd.Reason); err != nil {
		return err
	}
	if err := uc.bookingRepository.Save(ctx, booking); err != nil {
		return errors.Wrap(err, "failed to persist cancellation")
	}

	if err := uc.eventPublisher.Publish(ctx, booking.Events()...); err != nil {
		uc.logger.Warn("failed to publish booking cancelled event",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
	booking.ClearEvents()

	uc.logger.Warn("booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.String("failed_step", cmd.FailedStep),
		zap.String("reason", cmd.Reason))
	return nil
}
