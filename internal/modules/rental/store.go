// README: Rental store; the close update is guarded so a rental finishes once.
package rental

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"poring/internal/modules/hub"
)

// uniqueViolation is the PostgreSQL error code raised by the partial unique
// index on open rentals per user.
const uniqueViolation = "23505"

const rentalColumns = `rental_id, rental_code, user_id, bike_id, start_hub_id, end_hub_id,
	rental_start_date, rental_end_date, duration_min, charged_amount, used_point,
	canceled_amount, final_amount, payment_status, payment_method`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Pool() *pgxpool.Pool { return s.db }

func scanRental(row pgx.Row) (*Rental, error) {
	var r Rental
	err := row.Scan(&r.ID, &r.Code, &r.UserID, &r.BikeID, &r.StartHubID, &r.EndHubID,
		&r.StartedAt, &r.EndedAt, &r.DurationMin, &r.ChargedAmount, &r.UsedPoint,
		&r.CanceledAmt, &r.FinalAmount, &r.PaymentStatus, &r.PaymentMethod)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRentalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Rental, error) {
	return scanRental(s.db.QueryRow(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE rental_id = $1`, id))
}

// OpenByUser returns the user's active rental, if any.
func (s *Store) OpenByUser(ctx context.Context, userID int64) (*Rental, error) {
	return scanRental(s.db.QueryRow(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE user_id = $1 AND rental_end_date IS NULL`, userID))
}

// Insert opens a rental. The partial unique index rentals_one_open_per_user
// turns a racing second insert into ErrRentalActive.
func Insert(ctx context.Context, q hub.Querier, r *Rental) error {
	err := q.QueryRow(ctx, `
		INSERT INTO rentals (rental_code, user_id, bike_id, start_hub_id,
			rental_start_date, duration_min, charged_amount, used_point,
			canceled_amount, final_amount, payment_status, payment_method)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, 0, 0, $6, $7)
		RETURNING rental_id`,
		r.Code, r.UserID, r.BikeID, r.StartHubID, r.StartedAt, r.PaymentStatus, r.PaymentMethod).
		Scan(&r.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrRentalActive
	}
	return err
}

// CloseUpdate writes the settlement. Guarded by rental_end_date IS NULL so
// two racing returns cannot both settle the ride.
func CloseUpdate(ctx context.Context, q hub.Querier, r *Rental) error {
	tag, err := q.Exec(ctx, `
		UPDATE rentals
		SET end_hub_id = $2,
		    rental_end_date = $3,
		    duration_min = $4,
		    charged_amount = $5,
		    used_point = $6,
		    canceled_amount = $7,
		    final_amount = $8,
		    payment_status = $9
		WHERE rental_id = $1 AND rental_end_date IS NULL`,
		r.ID, r.EndHubID, r.EndedAt, r.DurationMin, r.ChargedAmount, r.UsedPoint,
		r.CanceledAmt, r.FinalAmount, r.PaymentStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRentalClosed
	}
	return nil
}
