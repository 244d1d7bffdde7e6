package application

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/shared/events"
)

// SendConfirmationCommand represents the command to confirm a booking
type SendConfirmationCommand struct {
	BookingID int64 `json:"booking_id"`
}

// SendConfirmation is the second workflow step: mark the booking confirmed
// and hand the confirmation message to the event bus, where the
// notification consumer owns delivery.
type SendConfirmation struct {
	bookingRepository domain.BookingRepository
	eventPublisher    events.Publisher
	logger            *zap.Logger
}

// NewSendConfirmation creates a new SendConfirmation use case
func NewSendConfirmation(
	bookingRepository domain.BookingRepository,
	eventPublisher events.Publisher,
	logger *zap.Logger,
) *SendConfirmation {
	return &SendConfirmation{
		bookingRepository: bookingRepository,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute confirms the booking and dispatches the confirmation event
func (uc *SendConfirmation) Execute(ctx context.Context, cmd *SendConfirmationCommand) error {
	booking, err := uc.bookingRepository.FindByID(ctx, cmd.BookingID)
	if err != nil {
		return errors.Wrap(err, "failed to find booking")
	}

	if booking == nil {
		uc.logger.Warn("booking not found for confirmation",
			zap.Int64("booking_id", cmd.BookingID))
		return nil
	}

	if booking.IsTerminal() {
		uc.logger.Info("skipping confirmation for terminal booking",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", string(booking.Status)))
		return nil
	}

	if err := booking.Confirm(); err != nil {
		return err
	}
	if err := uc.bookingRepository.Save(ctx, booking); err != nil {
		return errors.Wrap(err, "failed to persist confirmation")
	}

	if err := uc.eventPublisher.Publish(ctx, booking.Events()...); err != nil {
		uc.logger.Warn("failed to publish booking confirmed event",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
	booking.ClearEvents()

	uc.logger.Info("booking confirmed, confirmation dispatched",
		zap.Int64("booking_id", booking.ID),
		zap.String("email", booking.Email))
	return nil
}
