// README: Mission store; completion is a conditional flip from ACTIVE to DONE.
package mission

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poring/internal/modules/hub"
)

const missionColumns = `mission_id, user_id, bike_id, target_station_id, reward,
	status, created_at, completed_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Pool() *pgxpool.Pool { return s.db }

func scanMission(row pgx.Row) (*Mission, error) {
	var m Mission
	err := row.Scan(&m.ID, &m.UserID, &m.BikeID, &m.TargetStationID, &m.Reward,
		&m.Status, &m.CreatedAt, &m.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveMission
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ActiveByUser(ctx context.Context, userID int64) (*Mission, error) {
	return scanMission(s.db.QueryRow(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE user_id = $1 AND status = 'ACTIVE'`, userID))
}

func (s *Store) ActiveByBike(ctx context.Context, bikeID int64) (*Mission, error) {
	return scanMission(s.db.QueryRow(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE bike_id = $1 AND status = 'ACTIVE'`, bikeID))
}

func (s *Store) ActiveByUserAndBike(ctx context.Context, userID, bikeID int64) (*Mission, error) {
	return scanMission(s.db.QueryRow(ctx, `
		SELECT `+missionColumns+`
		FROM missions
		WHERE user_id = $1 AND bike_id = $2 AND status = 'ACTIVE'`, userID, bikeID))
}

func Insert(ctx context.Context, q hub.Querier, m *Mission) error {
	return q.QueryRow(ctx, `
		INSERT INTO missions (user_id, bike_id, target_station_id, reward, status, created_at)
		VALUES ($1, $2, $3, $4, 'ACTIVE', $5)
		RETURNING mission_id`,
		m.UserID, m.BikeID, m.TargetStationID, m.Reward, m.CreatedAt).
		Scan(&m.ID)
}

// MarkDone flips the mission to DONE. Guarded by status = 'ACTIVE' so two
// racing completions credit the reward once.
func MarkDone(ctx context.Context, q hub.Querier, missionID int64, at time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE missions SET status = 'DONE', completed_at = $2
		WHERE mission_id = $1 AND status = 'ACTIVE'`, missionID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveMission
	}
	return nil
}
