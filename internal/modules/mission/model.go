// README: Relocation mission aggregate and tracker errors.
package mission

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusDone   Status = "DONE"
)

// Mission asks a user to ride a low-battery bike out of a zone and dock it at
// a target station, for a point reward.
type Mission struct {
	ID              int64
	UserID          int64
	BikeID          int64
	TargetStationID int64
	Reward          int64
	Status          Status
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

var (
	ErrNoActiveMission = errors.New("no active mission")
	// ErrMissionDuplicate means the bike is already claimed by another user's
	// active mission.
	ErrMissionDuplicate = errors.New("bike already claimed by a mission")
	// ErrZoneSlotUnavailable means the bike's zone slot could not be reserved;
	// the bike was taken before the mission was prepared.
	ErrZoneSlotUnavailable = errors.New("zone slot unavailable")
	// ErrBikeNotInZone means the candidate bike is not parked in a zone, so
	// there is nothing to relocate.
	ErrBikeNotInZone = errors.New("bike is not parked in a zone")
	// ErrStationLocation means the target station's hub coordinates could not
	// be resolved for the proximity check.
	ErrStationLocation = errors.New("station location unavailable")
	// ErrTooFar means the rider is outside the return proximity threshold.
	ErrTooFar = errors.New("too far from the station")
)

// PrepareResult reports the mission the user should work on. Created is false
// when an already-active mission was returned instead of a new one.
type PrepareResult struct {
	MissionID int64 `json:"mission_id"`
	Created   bool  `json:"created"`
}

// CompleteResult is the outcome of a completion attempt. WrongStation is a
// non-fatal outcome: the rider docked at a station other than the target and
// should be redirected, nothing is mutated.
type CompleteResult struct {
	MissionID       int64 `json:"mission_id"`
	WrongStation    bool  `json:"wrong_station"`
	TargetStationID int64 `json:"target_station_id"`
	RewardedPoints  int64 `json:"rewarded_points"`
}
