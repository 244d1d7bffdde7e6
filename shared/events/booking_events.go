package events

// Booking lifecycle event types published on the event bus.
const (
	BookingCreatedEvent          = "booking.created"
	BookingPaymentProcessedEvent = "booking.payment_processed"
	BookingPaymentFailedEvent    = "booking.payment_failed"
	BookingConfirmedEvent        = "booking.confirmed"
	BookingCancelledEvent        = "booking.cancelled"
)
