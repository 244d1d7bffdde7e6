package application

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/shared/events"
	"github.com/roomly/booking-system/shared/tasks"
)

// ProcessPaymentCommand represents the command to charge a booking
type ProcessPaymentCommand struct {
	BookingID int64 `json:"booking_id"`
}

// ProcessPayment is the first workflow step: charge the booking through
// the payment gateway and commit the resulting status transition.
type ProcessPayment struct {
	bookingRepository domain.BookingRepository
	paymentGateway    domain.PaymentGateway
	eventPublisher    events.Publisher
	logger            *zap.Logger
}

// NewProcessPayment creates a new ProcessPayment use case
func NewProcessPayment(
	bookingRepository domain.BookingRepository,
	paymentGateway domain.PaymentGateway,
	eventPublisher events.Publisher,
	logger *zap.Logger,
) *ProcessPayment {
	return &ProcessPayment{
		bookingRepository: bookingRepository,
		paymentGateway:    paymentGateway,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute charges the booking. A decline persists payment_failed and
// returns a permanent error so the chain compensates without retrying;
// any other gateway fault is returned as-is and retried by the policy.
func (uc *ProcessPayment) Execute(ctx context.Context, cmd *ProcessPaymentCommand) error {
	booking, err := uc.bookingRepository.FindByID(ctx, cmd.BookingID)
	if err != nil {
		return errors.Wrap(err, "failed to find booking")
	}

	if booking == nil {
		uc.logger.Warn("booking not found for payment processing",
			zap.Int64("booking_id", cmd.BookingID))
		return nil
	}

	if booking.Status != domain.BookingStatusPending {
		// Duplicate delivery or a concurrent run already advanced this
		// booking; the committed status wins.
		uc.logger.Info("skipping payment processing",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", string(booking.Status)))
		return nil
	}

	chargeErr := uc.paymentGateway.Charge(ctx, booking)
	if chargeErr != nil && !errors.Is(chargeErr, domain.ErrPaymentDeclined) {
		return errors.Wrap(chargeErr, "payment gateway fault")
	}

	if chargeErr != nil {
		if err := booking.MarkPaymentFailed(chargeErr.Error()); err != nil {
			return err
		}
		if err := uc.bookingRepository.Save(ctx, booking); err != nil {
			return errors.Wrap(err, "failed to persist payment failure")
		}
		uc.publishEvents(ctx, booking)

		uc.logger.Warn("payment declined",
			zap.Int64("booking_id", booking.ID),
			zap.Error(chargeErr))
		return tasks.Permanent(chargeErr)
	}

	if err := booking.MarkPaymentProcessed(); err != nil {
		return err
	}
	if err := uc.bookingRepository.Save(ctx, booking); err != nil {
		return errors.Wrap(err, "failed to persist payment result")
	}
	uc.publishEvents(ctx, booking)

	uc.logger.Info("payment processed",
		zap.Int64("booking_id", booking.ID))
	return nil
}

func (uc *ProcessPayment) publishEvents(ctx context.Context, booking *domain.Booking) {
	if err := uc.eventPublisher.Publish(ctx, booking.Events()...); err != nil {
		uc.logger.Warn("failed to publish booking events",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
	booking.ClearEvents()
}
