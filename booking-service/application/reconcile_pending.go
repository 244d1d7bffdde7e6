package application

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roomly/booking-system/booking-service/domain"
)

// ReconcilePendingResponse reports the outcome of one sweep
type ReconcilePendingResponse struct {
	Found       int `json:"found"`
	Resubmitted int `json:"resubmitted"`
}

// ReconcilePending is the recovery sweep: it re-submits bookings stuck in
// pending. Because status is the workflow's only checkpoint, a booking
// whose chain was never dispatched looks exactly like a fresh one, so
// blind re-submission is the recovery mechanism. Redundant runs are safe:
// every step tolerates duplicates and terminal bookings are never touched.
type ReconcilePending struct {
	bookingRepository domain.BookingRepository
	startSaga         *StartBookingSaga
	logger            *zap.Logger
}

// NewReconcilePending creates a new ReconcilePending use case
func NewReconcilePending(
	bookingRepository domain.BookingRepository,
	startSaga *StartBookingSaga,
	logger *zap.Logger,
) *ReconcilePending {
	return &ReconcilePending{
		bookingRepository: bookingRepository,
		startSaga:         startSaga,
		logger:            logger,
	}
}

// Execute finds pending bookings and re-runs the workflow for each
func (uc *ReconcilePending) Execute(ctx context.Context) (*ReconcilePendingResponse, error) {
	pending, err := uc.bookingRepository.FindByStatus(ctx, domain.BookingStatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find pending bookings")
	}

	resubmitted := 0
	for _, booking := range pending {
		if err := uc.startSaga.Execute(ctx, booking.ID); err != nil {
			uc.logger.Error("failed to re-submit pending booking",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err))
			continue
		}
		resubmitted++
	}

	uc.logger.Info("reconciliation sweep finished",
		zap.Int("found", len(pending)),
		zap.Int("resubmitted", resubmitted))

	return &ReconcilePendingResponse{
		Found:       len(pending),
		Resubmitted: resubmitted,
	}, nil
}
