// README: Hub aggregate: stations (capped docks), zones (overflow), and slot errors.
package hub

import "errors"

// LocationKind distinguishes the two parking surfaces at a hub.
type LocationKind string

const (
	KindStation LocationKind = "Station"
	KindZone    LocationKind = "Zone"
)

type Hub struct {
	ID   int64
	Name string
	Lat  float64
	Lon  float64
}

// Station is a capacity-bounded dock; 0 <= ParkedSlots <= TotalSlots always holds.
type Station struct {
	ID          int64
	HubID       int64
	TotalSlots  int
	ParkedSlots int
}

// Zone is soft-capped overflow parking; ParkedSlots >= 0 always holds.
type Zone struct {
	ID          int64
	HubID       int64
	ParkedSlots int
}

var (
	ErrHubNotFound     = errors.New("hub not found")
	ErrStationNotFound = errors.New("station not found")
	ErrZoneNotFound    = errors.New("hub has no zone")

	// ErrSlotConflict means the conditional decrement matched no row: the slot the
	// caller observed was taken by a concurrent request.
	ErrSlotConflict = errors.New("no parked slot to reserve")

	// ErrStationFull means no station at the hub (or the targeted station) has a free dock.
	ErrStationFull = errors.New("no free station slot")
)

// Overview is one row of the hub board: occupancy across the hub's stations.
type Overview struct {
	Hub
	ParkedSum int
	TotalSum  int
}

// Availability is the answer to "how many bikes can I rent at <hub>?".
type Availability struct {
	HubName        string `json:"hub_name"`
	Found          bool   `json:"found"`
	AvailableBikes int    `json:"available_bikes"`
}

// NearbyHub is a hub ranked by great-circle distance from a rider.
type NearbyHub struct {
	Hub
	DistanceKm     float64
	AvailableBikes int
	// WalkingETA is a human-readable walking estimate, empty when the maps
	// client is not configured or the lookup failed.
	WalkingETA string
}
