// README: User store backed by PostgreSQL.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poring/internal/modules/hub"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx,
		`SELECT user_id, user_name, points, created_at FROM users WHERE user_id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Points, &u.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, id).Scan(&exists)
	return exists, err
}

// CreditPoints adds mission reward points; runs inside the caller's transaction.
func CreditPoints(ctx context.Context, q hub.Querier, userID int64, points int64) error {
	tag, err := q.Exec(ctx,
		`UPDATE users SET points = points + $2 WHERE user_id = $1`, userID, points)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary assembles the lifetime aggregates and the 10 most recent rentals.
func (s *Store) Summary(ctx context.Context, userID int64) (*Summary, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum := Summary{UserID: u.ID, Name: u.Name, Points: u.Points}
	err = s.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE rental_end_date IS NULL) > 0,
			COALESCE(SUM(duration_min), 0),
			COUNT(*) FILTER (WHERE payment_status = 'Paid'),
			COUNT(*) FILTER (WHERE payment_status = 'Failed'),
			COALESCE(SUM(final_amount) FILTER (WHERE rental_end_date IS NOT NULL), 0)
		FROM rentals
		WHERE user_id = $1`, userID).
		Scan(&sum.TotalRentals, &sum.OpenRental, &sum.TotalMinutes,
			&sum.PaidCount, &sum.FailedCount, &sum.TotalSpent.Amount)
	if err != nil {
		return nil, err
	}
	sum.TotalSpent.Currency = "KRW"

	rows, err := s.db.Query(ctx, `
		SELECT
			r.rental_code,
			sh.hub_name,
			eh.hub_name,
			r.rental_start_date,
			r.rental_end_date,
			COALESCE(r.final_amount, 0)
		FROM rentals r
		JOIN hubs sh ON sh.hub_id = r.start_hub_id
		LEFT JOIN hubs eh ON eh.hub_id = r.end_hub_id
		WHERE r.user_id = $1
		ORDER BY r.rental_start_date DESC
		LIMIT 10`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rr RecentRental
		if err := rows.Scan(&rr.RentalCode, &rr.StartHubName, &rr.EndHubName,
			&rr.StartedAt, &rr.EndedAt, &rr.Charged.Amount); err != nil {
			return nil, err
		}
		rr.Charged.Currency = "KRW"
		sum.RecentRentals = append(sum.RecentRentals, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sum, nil
}
