package domain

import (
	"context"

	"github.com/pkg/errors"
)

// ErrPaymentDeclined is the distinguished business failure returned by the
// payment gateway when a charge is refused. Declines are not retried.
var ErrPaymentDeclined = errors.New("payment declined")

// PaymentGateway is the charge boundary. Charge returns nil on success,
// ErrPaymentDeclined on a business decline, and any other error for a
// transient provider fault.
type PaymentGateway interface {
	Charge(ctx context.Context, booking *Booking) error
}
