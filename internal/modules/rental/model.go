// README: Rental aggregate, payment states, and state-machine errors.
package rental

import (
	"errors"
	"time"

	"poring/internal/modules/hub"
	"poring/internal/types"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

type Rental struct {
	ID            int64
	Code          string
	UserID        int64
	BikeID        int64
	StartHubID    int64
	EndHubID      *int64
	StartedAt     time.Time
	EndedAt       *time.Time
	DurationMin   int
	ChargedAmount int64
	UsedPoint     int64
	CanceledAmt   int64
	FinalAmount   int64
	PaymentStatus PaymentStatus
	PaymentMethod string
}

var (
	ErrRentalNotFound = errors.New("rental not found")
	ErrRentalClosed   = errors.New("rental already closed")
	// ErrRentalActive means the user already has an open rental; one at a time.
	ErrRentalActive = errors.New("user has an active rental")
	// ErrStationReturnRequired means the hub still has free station docks, so a
	// zone return was refused.
	ErrStationReturnRequired = errors.New("station return required while docks remain")
)

// StartResult is what the rider sees after a rental begins.
type StartResult struct {
	RentalCode string    `json:"rental_code"`
	BikeID     int64     `json:"bike_id"`
	HubName    string    `json:"hub_name"`
	StartedAt  time.Time `json:"started_at"`
}

// CloseResult is the receipt for a finished ride.
type CloseResult struct {
	RentalCode      string           `json:"rental_code"`
	DurationMinutes int              `json:"duration_minutes"`
	Charged         types.Money      `json:"charged"`
	Final           types.Money      `json:"final"`
	ReturnKind      hub.LocationKind `json:"return_kind"`
	EndHubName      string           `json:"end_hub_name"`
	EndedAt         time.Time        `json:"ended_at"`
}
