// README: Mission tracker: idempotent prepare, proximity-guarded complete.
package mission

import (
	"context"
	"time"

	"poring/internal/modules/bike"
	"poring/internal/modules/hub"
	"poring/internal/modules/user"
	"poring/internal/types"
)

type PrepareCommand struct {
	UserID          int64
	BikeID          int64
	TargetStationID int64
	// Reward of 0 falls back to the configured default.
	Reward int64
}

type CompleteCommand struct {
	UserID    int64
	BikeID    int64
	StationID int64
	At        types.Point
}

type Service struct {
	missions *Store
	hubs     *hub.Store
	bikes    *bike.Store
	users    *user.Store

	defaultReward int64
	// maxDistanceM bounds how far from the station's hub a completion may happen.
	maxDistanceM float64
	now          func() time.Time
}

func NewService(missions *Store, hubs *hub.Store, bikes *bike.Store, users *user.Store,
	defaultReward int64, maxDistanceM float64) *Service {
	return &Service{
		missions:      missions,
		hubs:          hubs,
		bikes:         bikes,
		users:         users,
		defaultReward: defaultReward,
		maxDistanceM:  maxDistanceM,
		now:           time.Now,
	}
}

// Prepare claims a zone-parked low-battery bike for the user. Idempotent: a
// user who already has an active mission gets that mission back. The bike's
// zone slot is reserved and the bike flipped to Using in the same transaction,
// so a rider cannot rent the bike out from under the mission.
func (s *Service) Prepare(ctx context.Context, cmd PrepareCommand) (*PrepareResult, error) {
	exists, err := s.users.Exists(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, user.ErrNotFound
	}

	if m, err := s.missions.ActiveByUser(ctx, cmd.UserID); err == nil {
		return &PrepareResult{MissionID: m.ID, Created: false}, nil
	} else if err != ErrNoActiveMission {
		return nil, err
	}

	if _, err := s.missions.ActiveByBike(ctx, cmd.BikeID); err == nil {
		return nil, ErrMissionDuplicate
	} else if err != ErrNoActiveMission {
		return nil, err
	}

	b, err := s.bikes.Get(ctx, cmd.BikeID)
	if err != nil {
		return nil, err
	}
	if b.Status != bike.StatusReturned || b.WhereParked == nil || *b.WhereParked != hub.KindZone {
		return nil, ErrBikeNotInZone
	}

	reward := cmd.Reward
	if reward == 0 {
		reward = s.defaultReward
	}

	now := s.now().UTC()
	tx, err := s.missions.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := hub.ReserveSlot(ctx, tx, hub.KindZone, *b.AssignedSZID); err != nil {
		if err == hub.ErrSlotConflict {
			return nil, ErrZoneSlotUnavailable
		}
		return nil, err
	}
	if err := bike.MarkUsing(ctx, tx, b.ID, now); err != nil {
		return nil, err
	}

	m := &Mission{
		UserID:          cmd.UserID,
		BikeID:          cmd.BikeID,
		TargetStationID: cmd.TargetStationID,
		Reward:          reward,
		CreatedAt:       now,
	}
	if err := Insert(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &PrepareResult{MissionID: m.ID, Created: true}, nil
}

// Complete docks the mission bike at the target station. Docking at another
// station is not an error: the rider gets a WrongStation result and a pointer
// to the right one. The settlement is one transaction: station slot, bike,
// mission flip, and reward stand or fall together.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*CompleteResult, error) {
	m, err := s.missions.ActiveByUserAndBike(ctx, cmd.UserID, cmd.BikeID)
	if err != nil {
		return nil, err
	}

	if cmd.StationID != m.TargetStationID {
		return &CompleteResult{
			MissionID:       m.ID,
			WrongStation:    true,
			TargetStationID: m.TargetStationID,
		}, nil
	}

	h, err := s.hubs.StationHub(ctx, m.TargetStationID)
	if err != nil {
		if err == hub.ErrStationNotFound {
			return nil, ErrStationLocation
		}
		return nil, err
	}
	if hub.HaversineM(cmd.At, types.Point{Lat: h.Lat, Lon: h.Lon}) > s.maxDistanceM {
		return nil, ErrTooFar
	}

	now := s.now().UTC()
	tx, err := s.missions.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := hub.ReleaseStationSlot(ctx, tx, m.TargetStationID); err != nil {
		return nil, err
	}
	if err := bike.MarkReturned(ctx, tx, m.BikeID, hub.KindStation, h.ID, m.TargetStationID); err != nil {
		return nil, err
	}
	if err := MarkDone(ctx, tx, m.ID, now); err != nil {
		return nil, err
	}
	if err := user.CreditPoints(ctx, tx, m.UserID, m.Reward); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &CompleteResult{
		MissionID:       m.ID,
		TargetStationID: m.TargetStationID,
		RewardedPoints:  m.Reward,
	}, nil
}
