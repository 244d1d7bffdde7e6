package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomly/booking-system/shared/events"
)

func TestNewBooking(t *testing.T) {
	tests := []struct {
		name          string
		bookingName   string
		email         string
		phone         string
		expectedError string
	}{
		{
			name:        "valid booking",
			bookingName: "Alice Johnson",
			email:       "alice@example.com",
			phone:       "+1-555-0100",
		},
		{
			name:          "name too short",
			bookingName:   "A",
			email:         "alice@example.com",
			phone:         "+1-555-0100",
			expectedError: "name must be at least 2 characters",
		},
		{
			name:          "empty name",
			bookingName:   "",
			email:         "alice@example.com",
			phone:         "+1-555-0100",
			expectedError: "name must be at least 2 characters",
		},
		{
			name:          "invalid email",
			bookingName:   "Alice Johnson",
			email:         "not-an-email",
			phone:         "+1-555-0100",
			expectedError: "invalid email address",
		},
		{
			name:          "empty phone",
			bookingName:   "Alice Johnson",
			email:         "alice@example.com",
			phone:         "",
			expectedError: "phone is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, err := NewBooking(tt.bookingName, tt.email, tt.phone)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, booking)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, BookingStatusPending, booking.Status)
			assert.Equal(t, 1, booking.Version.Value)
			assert.False(t, booking.IsTerminal())
			assert.Empty(t, booking.Events())
		})
	}
}

func TestBooking_MarkPaymentProcessed(t *testing.T) {
	booking := newPendingBooking(t)

	err := booking.MarkPaymentProcessed()

	require.NoError(t, err)
	assert.Equal(t, BookingStatusPaymentProcessed, booking.Status)
	assert.Equal(t, 2, booking.Version.Value)

	evts := booking.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, events.BookingPaymentProcessedEvent, evts[0].EventType)

	// Only pending bookings can move to payment_processed
	err = booking.MarkPaymentProcessed()
	assert.Error(t, err)
	assert.Equal(t, BookingStatusPaymentProcessed, booking.Status)
}

func TestBooking_MarkPaymentFailed(t *testing.T) {
	booking := newPendingBooking(t)

	err := booking.MarkPaymentFailed("card declined")

	require.NoError(t, err)
	assert.Equal(t, BookingStatusPaymentFailed, booking.Status)

	evts := booking.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, events.BookingPaymentFailedEvent, evts[0].EventType)

	var data BookingPaymentFailedData
	require.NoError(t, evts[0].UnmarshalPayload(&data))
	assert.Equal(t, "card declined", data.Reason)

	err = booking.MarkPaymentFailed("again")
	assert.Error(t, err)
}

func TestBooking_Confirm(t *testing.T) {
	booking := newPendingBooking(t)

	// Cannot confirm before payment
	err := booking.Confirm()
	assert.Error(t, err)
	assert.Equal(t, BookingStatusPending, booking.Status)

	require.NoError(t, booking.MarkPaymentProcessed())
	booking.ClearEvents()

	err = booking.Confirm()
	require.NoError(t, err)
	assert.Equal(t, BookingStatusConfirmed, booking.Status)
	assert.True(t, booking.IsTerminal())

	evts := booking.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, events.BookingConfirmedEvent, evts[0].EventType)
}

func TestBooking_Cancel(t *testing.T) {
	t.Run("cancels a pending booking", func(t *testing.T) {
		booking := newPendingBooking(t)

		err := booking.Cancel("payment declined")

		require.NoError(t, err)
		assert.Equal(t, BookingStatusCancelled, booking.Status)
		assert.True(t, booking.IsTerminal())

		evts := booking.Events()
		require.Len(t, evts, 1)
		assert.Equal(t, events.BookingCancelledEvent, evts[0].EventType)
	})

	t.Run("cancels a payment_processed booking", func(t *testing.T) {
		booking := newPendingBooking(t)
		require.NoError(t, booking.MarkPaymentProcessed())
		booking.ClearEvents()

		err := booking.Cancel("confirmation failed")

		require.NoError(t, err)
		assert.Equal(t, BookingStatusCancelled, booking.Status)
	})

	t.Run("is idempotent on a cancelled booking", func(t *testing.T) {
		booking := newPendingBooking(t)
		require.NoError(t, booking.Cancel("first"))
		booking.ClearEvents()
		versionBefore := booking.Version.Value

		err := booking.Cancel("second")

		require.NoError(t, err)
		assert.Equal(t, BookingStatusCancelled, booking.Status)
		assert.Equal(t, versionBefore, booking.Version.Value)
		assert.Empty(t, booking.Events())
	})

	t.Run("never touches a confirmed booking", func(t *testing.T) {
		booking := newPendingBooking(t)
		require.NoError(t, booking.MarkPaymentProcessed())
		require.NoError(t, booking.Confirm())
		booking.ClearEvents()

		err := booking.Cancel("late failure route")

		require.NoError(t, err)
		assert.Equal(t, BookingStatusConfirmed, booking.Status)
		assert.Empty(t, booking.Events())
	})
}

func TestBooking_AggregateID(t *testing.T) {
	booking := newPendingBooking(t)
	booking.ID = 42

	assert.Equal(t, "42", booking.AggregateID())
}

func newPendingBooking(t *testing.T) *Booking {
	t.Helper()
	booking, err := NewBooking("Alice Johnson", "alice@example.com", "+1-555-0100")
	require.NoError(t, err)
	booking.ID = 7
	return booking
}
