// README: Hub store backed by PostgreSQL; slot ledger mutations are conditional updates.
package hub

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so ledger mutations can
// run inside a caller-owned transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetByName(ctx context.Context, name string) (*Hub, error) {
	return getHub(ctx, s.db, `SELECT hub_id, hub_name, latitude, longitude FROM hubs WHERE hub_name = $1`, name)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Hub, error) {
	return getHub(ctx, s.db, `SELECT hub_id, hub_name, latitude, longitude FROM hubs WHERE hub_id = $1`, id)
}

func getHub(ctx context.Context, q Querier, sql string, arg any) (*Hub, error) {
	var h Hub
	err := q.QueryRow(ctx, sql, arg).Scan(&h.ID, &h.Name, &h.Lat, &h.Lon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHubNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) ListAll(ctx context.Context) ([]Hub, error) {
	rows, err := s.db.Query(ctx, `SELECT hub_id, hub_name, latitude, longitude FROM hubs ORDER BY hub_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hubs []Hub
	for rows.Next() {
		var h Hub
		if err := rows.Scan(&h.ID, &h.Name, &h.Lat, &h.Lon); err != nil {
			return nil, err
		}
		hubs = append(hubs, h)
	}
	return hubs, rows.Err()
}

// ListOverview returns every hub with its rentable-bike count and station capacity.
func (s *Store) ListOverview(ctx context.Context) ([]Overview, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			h.hub_id, h.hub_name, h.latitude, h.longitude,
			(
				SELECT COUNT(*)
				FROM bikes b
				WHERE b.assigned_hub_id = h.hub_id
				  AND b.status = 'Returned'
				  AND b.is_active
				  AND NOT b.is_under_repair
				  AND NOT b.is_retired
			) AS parked_sum,
			(
				SELECT COALESCE(SUM(s.total_slots), 0)
				FROM stations s
				WHERE s.hub_id = h.hub_id
			) AS total_sum
		FROM hubs h
		ORDER BY h.hub_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Overview
	for rows.Next() {
		var o Overview
		if err := rows.Scan(&o.ID, &o.Name, &o.Lat, &o.Lon, &o.ParkedSum, &o.TotalSum); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountAvailableBikes counts rentable bikes parked anywhere at the hub.
func (s *Store) CountAvailableBikes(ctx context.Context, hubID int64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bikes
		WHERE assigned_hub_id = $1
		  AND status = 'Returned'
		  AND is_active
		  AND NOT is_under_repair
		  AND NOT is_retired`, hubID).Scan(&n)
	return n, err
}

// StationHub resolves a station to its hub's identity and coordinates.
func (s *Store) StationHub(ctx context.Context, stationID int64) (*Hub, error) {
	var h Hub
	err := s.db.QueryRow(ctx, `
		SELECT h.hub_id, h.hub_name, h.latitude, h.longitude
		FROM stations st
		JOIN hubs h ON h.hub_id = st.hub_id
		WHERE st.station_id = $1`, stationID).Scan(&h.ID, &h.Name, &h.Lat, &h.Lon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// StationWithFreeSlot returns a station at the hub that can still take a bike,
// without locking it. Used for read-only suggestions (mission targets).
func (s *Store) StationWithFreeSlot(ctx context.Context, hubID int64) (*Station, error) {
	var st Station
	err := s.db.QueryRow(ctx, `
		SELECT station_id, hub_id, total_slots, parked_slots
		FROM stations
		WHERE hub_id = $1 AND parked_slots < total_slots
		ORDER BY station_id
		LIMIT 1`, hubID).Scan(&st.ID, &st.HubID, &st.TotalSlots, &st.ParkedSlots)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStationFull
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// IsHubFull reports whether the hub's stations are at (or beyond) capacity.
// Zones are excluded: they exist precisely as overflow for a full hub.
func IsHubFull(ctx context.Context, q Querier, hubID int64) (bool, error) {
	var full bool
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(parked_slots), 0) >= COALESCE(SUM(total_slots), 0)
		FROM stations
		WHERE hub_id = $1`, hubID).Scan(&full)
	return full, err
}

// ReserveSlot removes one parked bike from the station or zone. The decrement is
// guarded by parked_slots > 0 so two racing rentals cannot both take the last bike;
// zero affected rows surfaces as ErrSlotConflict.
func ReserveSlot(ctx context.Context, q Querier, kind LocationKind, id int64) error {
	var sql string
	switch kind {
	case KindStation:
		sql = `UPDATE stations SET parked_slots = parked_slots - 1 WHERE station_id = $1 AND parked_slots > 0`
	case KindZone:
		sql = `UPDATE zones SET parked_slots = parked_slots - 1 WHERE zone_id = $1 AND parked_slots > 0`
	default:
		return ErrSlotConflict
	}
	tag, err := q.Exec(ctx, sql, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotConflict
	}
	return nil
}

// ReleaseStationSlotAtHub parks one bike at any station of the hub with a free dock
// and returns the chosen station id. Selection and increment happen in a single
// statement (SKIP LOCKED) so concurrent returns spread across free stations instead
// of failing on the same row.
func ReleaseStationSlotAtHub(ctx context.Context, q Querier, hubID int64) (int64, error) {
	var stationID int64
	err := q.QueryRow(ctx, `
		UPDATE stations SET parked_slots = parked_slots + 1
		WHERE station_id = (
			SELECT station_id FROM stations
			WHERE hub_id = $1 AND parked_slots < total_slots
			ORDER BY station_id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING station_id`, hubID).Scan(&stationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrStationFull
	}
	if err != nil {
		return 0, err
	}
	return stationID, nil
}

// ReleaseStationSlot parks one bike at the specific station, still bounded by capacity.
func ReleaseStationSlot(ctx context.Context, q Querier, stationID int64) error {
	tag, err := q.Exec(ctx, `
		UPDATE stations SET parked_slots = parked_slots + 1
		WHERE station_id = $1 AND parked_slots < total_slots`, stationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStationFull
	}
	return nil
}

// ReleaseZoneSlotAtHub parks one bike in the hub's zone (the first one, matching the
// provisioning convention of one overflow zone per hub). Zones are soft-capped, so
// the increment is unconditional.
func ReleaseZoneSlotAtHub(ctx context.Context, q Querier, hubID int64) (int64, error) {
	var zoneID int64
	err := q.QueryRow(ctx, `
		UPDATE zones SET parked_slots = parked_slots + 1
		WHERE zone_id = (
			SELECT zone_id FROM zones
			WHERE hub_id = $1
			ORDER BY zone_id
			LIMIT 1
		)
		RETURNING zone_id`, hubID).Scan(&zoneID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrZoneNotFound
	}
	if err != nil {
		return 0, err
	}
	return zoneID, nil
}
