package infrastructure

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomly/booking-system/booking-service/domain"
)

func TestSimulatedPaymentGateway_Charge(t *testing.T) {
	gateway := NewSimulatedPaymentGateway()

	charge := func(id int64) error {
		booking, err := domain.NewBooking("Alice Johnson", "alice@example.com", "+1-555-0100")
		require.NoError(t, err)
		booking.ID = id
		return gateway.Charge(context.Background(), booking)
	}

	t.Run("charges odd booking ids", func(t *testing.T) {
		assert.NoError(t, charge(1))
		assert.NoError(t, charge(7))
		assert.NoError(t, charge(999))
	})

	t.Run("declines even booking ids", func(t *testing.T) {
		for _, id := range []int64{2, 8, 1000} {
			err := charge(id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrPaymentDeclined))
		}
	})
}
