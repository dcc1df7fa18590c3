package hub

import (
	"math"
	"testing"

	"poring/internal/types"
)

func TestHaversineM_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantM     float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 36.0126, Lon: 129.3235},
			b:         types.Point{Lat: 36.0126, Lon: 129.3235},
			wantM:     0,
			tolerance: 0.01,
		},
		{
			name:      "about 50 meters north",
			a:         types.Point{Lat: 36.01260, Lon: 129.32350},
			b:         types.Point{Lat: 36.01305, Lon: 129.32350},
			wantM:     50,
			tolerance: 1,
		},
		{
			name:      "Pohang to Seoul (~270km)",
			a:         types.Point{Lat: 36.0190, Lon: 129.3435},
			b:         types.Point{Lat: 37.5665, Lon: 126.9780},
			wantM:     270000,
			tolerance: 15000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineM(tt.a, tt.b)
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("HaversineM() = %f, want %f (±%f)", got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestHaversineM_Symmetry(t *testing.T) {
	a := types.Point{Lat: 36.0, Lon: 129.0}
	b := types.Point{Lat: 36.5, Lon: 129.5}
	d1 := HaversineM(a, b)
	d2 := HaversineM(b, a)
	if math.Abs(d1-d2) > 0.001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestSortByDistance(t *testing.T) {
	hubs := []NearbyHub{
		{Hub: Hub{ID: 3}, DistanceKm: 5.0},
		{Hub: Hub{ID: 1}, DistanceKm: 1.0},
		{Hub: Hub{ID: 2}, DistanceKm: 3.0},
	}

	sortByDistance(hubs, func(n NearbyHub) float64 { return n.DistanceKm })

	if hubs[0].ID != 1 || hubs[1].ID != 2 || hubs[2].ID != 3 {
		t.Errorf("unexpected sort order: %v", hubs)
	}
}
