package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/roomly/booking-system/booking-service/domain"
	"github.com/roomly/booking-system/shared/models"
)

// PostgresBookingRepository implements domain.BookingRepository using
// PostgreSQL. Updates use optimistic locking on the version column so two
// concurrent workers on the same booking cannot produce a lost update.
type PostgresBookingRepository struct {
	db *sqlx.DB
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(db *sqlx.DB) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db}
}

// postgresBooking represents a booking row
type postgresBooking struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   int       `db:"version"`
}

// Save inserts a new booking or commits a status transition of an
// existing one. The id is assigned by the bookings sequence on insert.
func (r *PostgresBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	if booking.ID == 0 {
		return r.insertBooking(ctx, booking)
	}
	return r.updateBooking(ctx, booking)
}

func (r *PostgresBookingRepository) insertBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (name, email, phone, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		booking.Name,
		booking.Email,
		booking.Phone,
		string(booking.Status),
		booking.Timestamps.CreatedAt,
		booking.Timestamps.UpdatedAt,
		booking.Version.Value,
	).Scan(&booking.ID)
	if err != nil {
		return errors.Wrap(err, "failed to insert booking")
	}

	return nil
}

func (r *PostgresBookingRepository) updateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = :status, updated_at = :updated_at, version = :version
		WHERE id = :id AND version = :old_version`

	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          booking.ID,
		"status":      string(booking.Status),
		"updated_at":  booking.Timestamps.UpdatedAt,
		"version":     booking.Version.Value,
		"old_version": booking.Version.Value - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update booking")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

// FindByID finds a booking by id, returning (nil, nil) when absent
func (r *PostgresBookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `
		SELECT id, name, email, phone, status, created_at, updated_at, version
		FROM bookings
		WHERE id = $1`

	var row postgresBooking
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find booking")
	}

	return r.toDomain(&row), nil
}

// FindByStatus finds all bookings with the given status
func (r *PostgresBookingRepository) FindByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	query := `
		SELECT id, name, email, phone, status, created_at, updated_at, version
		FROM bookings
		WHERE status = $1
		ORDER BY id`

	var rows []postgresBooking
	err := r.db.SelectContext(ctx, &rows, query, string(status))
	if err != nil {
		return nil, errors.Wrap(err, "failed to find bookings by status")
	}

	bookings := make([]*domain.Booking, len(rows))
	for i := range rows {
		bookings[i] = r.toDomain(&rows[i])
	}

	return bookings, nil
}

func (r *PostgresBookingRepository) toDomain(row *postgresBooking) *domain.Booking {
	return &domain.Booking{
		ID:     row.ID,
		Name:   row.Name,
		Email:  row.Email,
		Phone:  row.Phone,
		Status: domain.BookingStatus(row.Status),
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Version: models.Version{Value: row.Version},
	}
}
