package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"github.com/roomly/booking-system/booking-service/domain"
)

var _ domain.PaymentGateway = (*SimulatedPaymentGateway)(nil)

// SimulatedPaymentGateway stands in for the external payment provider.
// It declines bookings with even ids, keeping the decline path
// exercisable end to end without a real provider account.
type SimulatedPaymentGateway struct{}

// NewSimulatedPaymentGateway creates a new SimulatedPaymentGateway
func NewSimulatedPaymentGateway() *SimulatedPaymentGateway {
	return &SimulatedPaymentGateway{}
}

// Charge implements domain.PaymentGateway
func (g *SimulatedPaymentGateway) Charge(ctx context.Context, booking *domain.Booking) error {
	if booking.ID%2 == 0 {
		return errors.Wrapf(domain.ErrPaymentDeclined, "card declined for booking %d", booking.ID)
	}
	return nil
}
