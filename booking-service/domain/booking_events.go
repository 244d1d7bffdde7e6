package domain

// BookingCreatedData is the payload for booking.created
type BookingCreatedData struct {
	BookingID int64  `json:"booking_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// BookingPaymentProcessedData is the payload for booking.payment_processed
type BookingPaymentProcessedData struct {
	BookingID int64 `json:"booking_id"`
}

// BookingPaymentFailedData is the payload for booking.payment_failed
type BookingPaymentFailedData struct {
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason"`
}

// BookingConfirmedData is the payload for booking.confirmed
type BookingConfirmedData struct {
	BookingID int64  `json:"booking_id"`
	Email     string `json:"email"`
}

// BookingCancelledData is the payload for booking.cancelled
type BookingCancelledData struct {
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason"`
}
