// README: Recommendation ordering for rentable bikes.
package bike

import (
	"sort"

	"poring/internal/modules/hub"
)

// rankCategory buckets a bike for recommendation: charged station bikes first,
// charged zone bikes, low station bikes, low zone bikes last.
func rankCategory(b Bike, fullBattery int) int {
	station := b.WhereParked != nil && *b.WhereParked == hub.KindStation
	charged := b.BatteryLevel >= fullBattery
	switch {
	case station && charged:
		return 1
	case !station && charged:
		return 2
	case station:
		return 3
	default:
		return 4
	}
}

// Less is the full recommendation tie-break: category ascending, battery level
// descending, never-rented before previously-rented, older last rental first,
// bike id ascending.
func Less(a, b Bike, fullBattery int) bool {
	ca, cb := rankCategory(a, fullBattery), rankCategory(b, fullBattery)
	if ca != cb {
		return ca < cb
	}
	if a.BatteryLevel != b.BatteryLevel {
		return a.BatteryLevel > b.BatteryLevel
	}
	if (a.LastRental == nil) != (b.LastRental == nil) {
		return a.LastRental == nil
	}
	if a.LastRental != nil && !a.LastRental.Equal(*b.LastRental) {
		return a.LastRental.Before(*b.LastRental)
	}
	return a.ID < b.ID
}

// SortForRental orders candidates in place by the recommendation tie-break.
func SortForRental(bikes []Bike, fullBattery int) {
	sort.SliceStable(bikes, func(i, j int) bool {
		return Less(bikes[i], bikes[j], fullBattery)
	})
}
