package domain

import (
	"context"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/roomly/booking-system/shared/events"
	"github.com/roomly/booking-system/shared/models"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "pending"
	BookingStatusPaymentFailed    BookingStatus = "payment_failed"
	BookingStatusPaymentProcessed BookingStatus = "payment_processed"
	BookingStatusConfirmed        BookingStatus = "confirmed"
	BookingStatusCancelled        BookingStatus = "cancelled"
)

// ErrVersionConflict indicates a concurrent writer committed first; the
// caller should reload and re-evaluate.
var ErrVersionConflict = errors.New("booking was modified concurrently")

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// Booking aggregate root. Status is the saga's only durable checkpoint:
// every workflow step commits exactly one status transition.
type Booking struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Status     BookingStatus
	Timestamps models.Timestamps
	Version    models.Version

	events []*events.Event
}

// NewBooking validates the contact fields and creates a pending booking.
// The id is assigned by the record store on first save.
func NewBooking(name, email, phone string) (*Booking, error) {
	if utf8.RuneCountInString(name) < 2 {
		return nil, errors.New("name must be at least 2 characters")
	}
	if !emailPattern.MatchString(email) {
		return nil, errors.New("invalid email address")
	}
	if phone == "" {
		return nil, errors.New("phone is required")
	}

	return &Booking{
		Name:       name,
		Email:      email,
		Phone:      phone,
		Status:     BookingStatusPending,
		Timestamps: models.NewTimestamps(),
		Version:    models.NewVersion(),
	}, nil
}

// IsTerminal reports whether the booking reached a final status. Terminal
// bookings are never mutated again.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCancelled
}

// MarkPaymentProcessed transitions pending -> payment_processed
func (b *Booking) MarkPaymentProcessed() error {
	if b.Status != BookingStatusPending {
		return errors.Errorf("payment can only be processed from pending status, got %s", b.Status)
	}

	b.Status = BookingStatusPaymentProcessed
	b.touch()

	b.recordEvent(events.NewEvent(b.AggregateID(), events.BookingPaymentProcessedEvent, BookingPaymentProcessedData{
		BookingID: b.ID,
	}))
	return nil
}

// MarkPaymentFailed transitions pending -> payment_failed. The status is a
// transient marker persisted just before the decline propagates to the
// compensator.
func (b *Booking) MarkPaymentFailed(reason string) error {
	if b.Status != BookingStatusPending {
		return errors.Errorf("payment can only fail from pending status, got %s", b.Status)
	}

	b.Status = BookingStatusPaymentFailed
	b.touch()

	b.recordEvent(events.NewEvent(b.AggregateID(), events.BookingPaymentFailedEvent, BookingPaymentFailedData{
		BookingID: b.ID,
		Reason:    reason,
	}))
	return nil
}

// Confirm transitions payment_processed -> confirmed
func (b *Booking) Confirm() error {
	if b.Status != BookingStatusPaymentProcessed {
		return errors.Errorf("booking can only be confirmed from payment_processed status, got %s", b.Status)
	}

	b.Status = BookingStatusConfirmed
	b.touch()

	b.recordEvent(events.NewEvent(b.AggregateID(), events.BookingConfirmedEvent, BookingConfirmedData{
		BookingID: b.ID,
		Email:     b.Email,
	}))
	return nil
}

// Cancel moves the booking to cancelled from any non-terminal status. It
// is idempotent: cancelling an already-cancelled booking changes nothing.
// A confirmed booking is terminal and stays confirmed.
func (b *Booking) Cancel(reason string) error {
	if b.IsTerminal() {
		return nil
	}

	b.Status = BookingStatusCancelled
	b.touch()

	b.recordEvent(events.NewEvent(b.AggregateID(), events.BookingCancelledEvent, BookingCancelledData{
		BookingID: b.ID,
		Reason:    reason,
	}))
	return nil
}

// AggregateID returns the booking id in event form
func (b *Booking) AggregateID() string {
	return strconv.FormatInt(b.ID, 10)
}

// Events returns recorded domain events
func (b *Booking) Events() []*events.Event {
	return b.events
}

// ClearEvents clears recorded domain events
func (b *Booking) ClearEvents() {
	b.events = nil
}

func (b *Booking) touch() {
	b.Timestamps = b.Timestamps.Update()
	b.Version = b.Version.Update()
}

func (b *Booking) recordEvent(event *events.Event) {
	b.events = append(b.events, event)
}

// BookingRepository is the record store port. FindByID returns (nil, nil)
// when the booking does not exist.
type BookingRepository interface {
	FindByID(ctx context.Context, id int64) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	FindByStatus(ctx context.Context, status BookingStatus) ([]*Booking, error)
}
