package application

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/shared/events"
)

// CreateBookingCommand represents the command to create a booking
type CreateBookingCommand struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateBookingResponse represents the response after creating a booking
type CreateBookingResponse struct {
	BookingID int64  `json:"booking_id"`
	Message   string `json:"message"`
}

// CreateBooking is the submission gateway use case: it durably creates a
// pending booking and then schedules the workflow for it.
type CreateBooking struct {
	bookingRepository domain.BookingRepository
	eventPublisher    events.Publisher
	startSaga         *StartBookingSaga
	logger            *zap.Logger
}

// NewCreateBooking creates a new CreateBooking use case
func NewCreateBooking(
	bookingRepository domain.BookingRepository,
	eventPublisher events.Publisher,
	startSaga *StartBookingSaga,
	logger *zap.Logger,
) *CreateBooking {
	return &CreateBooking{
		bookingRepository: bookingRepository,
		eventPublisher:    eventPublisher,
		startSaga:         startSaga,
		logger:            logger,
	}
}

// Execute creates the booking and schedules its workflow. A scheduling
// failure after the durable insert is logged, not returned: the booking
// stays pending and the reconciliation sweep re-submits it.
func (uc *CreateBooking) Execute(ctx context.Context, cmd *CreateBookingCommand) (*CreateBookingResponse, error) {
	booking, err := domain.NewBooking(cmd.Name, cmd.Email, cmd.Phone)
	if err != nil {
		return nil, errors.Wrap(err, "invalid command")
	}

	if err := uc.bookingRepository.Save(ctx, booking); err != nil {
		return nil, errors.Wrap(err, "failed to save booking")
	}

	created := events.NewEvent(booking.AggregateID(), events.BookingCreatedEvent, domain.BookingCreatedData{
		BookingID: booking.ID,
		Name:      booking.Name,
		Email:     booking.Email,
		Phone:     booking.Phone,
	})
	if err := uc.eventPublisher.Publish(ctx, created); err != nil {
		uc.logger.Warn("failed to publish booking created event",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	if err := uc.startSaga.Execute(ctx, booking.ID); err != nil {
		uc.logger.Error("failed to schedule booking saga, sweep will re-submit",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	return &CreateBookingResponse{
		BookingID: booking.ID,
		Message:   "Booking process started",
	}, nil
}
