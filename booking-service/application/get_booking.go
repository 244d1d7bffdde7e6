package application

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/roomly/booking-system/booking-service/domain"
)

// ErrBookingNotFound indicates the requested booking does not exist
var ErrBookingNotFound = errors.New("booking not found")

// GetBookingQuery represents the query to get a booking
type GetBookingQuery struct {
	BookingID int64 `json:"booking_id"`
}

// GetBookingResponse represents the response for getting a booking
type GetBookingResponse struct {
	BookingID int64  `json:"booking_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// GetBooking use case. A pure read: no workflow side effects.
type GetBooking struct {
	bookingRepository domain.BookingRepository
}

// NewGetBooking creates a new GetBooking use case
func NewGetBooking(bookingRepository domain.BookingRepository) *GetBooking {
	return &GetBooking{
		bookingRepository: bookingRepository,
	}
}

// Execute executes the get booking use case
func (uc *GetBooking) Execute(ctx context.Context, query *GetBookingQuery) (*GetBookingResponse, error) {
	if query.BookingID <= 0 {
		return nil, errors.New("booking ID is required")
	}

	booking, err := uc.bookingRepository.FindByID(ctx, query.BookingID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find booking")
	}

	if booking == nil {
		return nil, ErrBookingNotFound
	}

	return &GetBookingResponse{
		BookingID: booking.ID,
		Name:      booking.Name,
		Email:     booking.Email,
		Phone:     booking.Phone,
		Status:    string(booking.Status),
		CreatedAt: booking.Timestamps.CreatedAt.Format(time.RFC3339),
		UpdatedAt: booking.Timestamps.UpdatedAt.Format(time.RFC3339),
	}, nil
}
