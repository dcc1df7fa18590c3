// README: Bike store backed by PostgreSQL.
package bike

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poring/internal/modules/hub"
)

const bikeColumns = `bike_id, serial_number, status, where_parked, assigned_hub_id,
	assigned_sz_id, battery_level, is_active, is_under_repair, is_retired, last_rental_time`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func scanBike(row pgx.Row) (*Bike, error) {
	var b Bike
	err := row.Scan(&b.ID, &b.SerialNumber, &b.Status, &b.WhereParked, &b.AssignedHubID,
		&b.AssignedSZID, &b.BatteryLevel, &b.IsActive, &b.IsUnderRepair, &b.IsRetired, &b.LastRental)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Bike, error) {
	return scanBike(s.db.QueryRow(ctx,
		`SELECT `+bikeColumns+` FROM bikes WHERE bike_id = $1`, id))
}

// AvailableByHub lists every rentable bike parked at the hub, unordered;
// callers rank with SortForRental.
func (s *Store) AvailableByHub(ctx context.Context, hubID int64) ([]Bike, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bikeColumns+`
		FROM bikes
		WHERE assigned_hub_id = $1
		  AND status = 'Returned'
		  AND is_active
		  AND NOT is_under_repair
		  AND NOT is_retired`, hubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bikes []Bike
	for rows.Next() {
		var b Bike
		if err := rows.Scan(&b.ID, &b.SerialNumber, &b.Status, &b.WhereParked, &b.AssignedHubID,
			&b.AssignedSZID, &b.BatteryLevel, &b.IsActive, &b.IsUnderRepair, &b.IsRetired, &b.LastRental); err != nil {
			return nil, err
		}
		bikes = append(bikes, b)
	}
	return bikes, rows.Err()
}

// LowBatteryInZone finds a zone-parked bike at the hub below the charge threshold,
// the mission candidate offered after a rental starts.
func (s *Store) LowBatteryInZone(ctx context.Context, hubID int64, threshold int) (*Bike, error) {
	return scanBike(s.db.QueryRow(ctx, `
		SELECT `+bikeColumns+`
		FROM bikes
		WHERE assigned_hub_id = $1
		  AND where_parked = 'Zone'
		  AND status = 'Returned'
		  AND battery_level < $2
		  AND is_active
		  AND NOT is_under_repair
		  AND NOT is_retired
		ORDER BY battery_level, bike_id
		LIMIT 1`, hubID, threshold))
}

// MarkUsing flips the bike out of its parking spot. Guarded by status = 'Returned'
// so two racing rentals cannot both take the same bike.
func MarkUsing(ctx context.Context, q hub.Querier, bikeID int64, now time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE bikes
		SET status = 'Using',
		    where_parked = NULL,
		    assigned_hub_id = NULL,
		    assigned_sz_id = NULL,
		    is_active = FALSE,
		    last_rental_time = $2
		WHERE bike_id = $1 AND status = 'Returned'`, bikeID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAvailable
	}
	return nil
}

// MarkReturned parks the bike at the given station or zone. Guarded by
// status = 'Using' so a rental cannot be closed twice against the same bike.
func MarkReturned(ctx context.Context, q hub.Querier, bikeID int64, kind hub.LocationKind, hubID, szID int64) error {
	tag, err := q.Exec(ctx, `
		UPDATE bikes
		SET status = 'Returned',
		    where_parked = $2,
		    assigned_hub_id = $3,
		    assigned_sz_id = $4,
		    is_active = TRUE
		WHERE bike_id = $1 AND status = 'Using'`, bikeID, kind, hubID, szID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAvailable
	}
	return nil
}
