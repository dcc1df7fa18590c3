// README: Bike aggregate and status definitions.
package bike

import (
	"errors"
	"time"

	"poring/internal/modules/hub"
)

type Status string

const (
	// StatusReturned means the bike is parked at a station or zone and rentable.
	StatusReturned Status = "Returned"
	// StatusUsing means the bike is out on a rental; all parking fields are null.
	StatusUsing Status = "Using"
)

type Bike struct {
	ID            int64
	SerialNumber  string
	Status        Status
	WhereParked   *hub.LocationKind
	AssignedHubID *int64
	// AssignedSZID is the station or zone the bike occupies, per WhereParked.
	AssignedSZID  *int64
	BatteryLevel  int
	IsActive      bool
	IsUnderRepair bool
	IsRetired     bool
	LastRental    *time.Time
}

var (
	ErrNotFound = errors.New("bike not found")
	// ErrNotAvailable covers every state that blocks a rental: already in use,
	// inactive, under repair, retired, or missing its parking assignment.
	ErrNotAvailable = errors.New("bike not available")
)

// Rentable reports whether the bike can start a rental right now.
func (b Bike) Rentable() bool {
	return b.Status == StatusReturned &&
		b.IsActive && !b.IsUnderRepair && !b.IsRetired &&
		b.WhereParked != nil && b.AssignedHubID != nil && b.AssignedSZID != nil
}
