// README: Chat session model: pending states, commands, and replies.
package chat

import (
	"errors"

	"poring/internal/types"
)

// State is the pending step of a conversation. A session with StateNone has no
// question outstanding and the next message is classified from scratch.
type State string

const (
	StateNone                State = ""
	StateAwaitRentConfirm    State = "awaiting_rent_confirm"
	StateAwaitReturnType     State = "awaiting_return_type"
	StateAwaitMissionConfirm State = "awaiting_mission_confirm"
)

// PendingMission is the relocation offer held in the session until the user
// confirms or declines it.
type PendingMission struct {
	BikeID          int64 `json:"bike_id"`
	TargetStationID int64 `json:"target_station_id"`
	Reward          int64 `json:"reward"`
}

// Session is the JSON payload stored in redis per user, expiring with the
// conversation TTL.
type Session struct {
	State   State  `json:"state"`
	HubID   int64  `json:"hub_id,omitempty"`
	HubName string `json:"hub_name,omitempty"`
	// BikeID is the recommended bike awaiting rent confirmation.
	BikeID  int64           `json:"bike_id,omitempty"`
	Mission *PendingMission `json:"mission,omitempty"`
}

type Command struct {
	UserID  int64
	Message string
	// At is the rider's position, when the client shared one.
	At *types.Point
}

type Reply struct {
	Text  string `json:"text"`
	State State  `json:"state"`
}

// ErrInsufficientTokens is returned when a user has no chat tokens remaining
// for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")
