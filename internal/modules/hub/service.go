// README: Hub service: availability answers, the hub board, and nearby-hub ranking.
package hub

import (
	"context"

	"poring/internal/types"
)

// WalkEstimator produces a human-readable walking estimate between two points.
// Implemented by the Google Maps route client; nil disables estimates.
type WalkEstimator interface {
	WalkingETA(ctx context.Context, from, to types.Point) (string, error)
}

type Service struct {
	store  *Store
	walker WalkEstimator
}

func NewService(store *Store, walker WalkEstimator) *Service {
	return &Service{store: store, walker: walker}
}

// Availability answers "how many bikes at <hub>?". An unknown hub is not an error:
// the chat front end turns it into a "hub not found" sentence.
func (s *Service) Availability(ctx context.Context, hubName string) (Availability, error) {
	h, err := s.store.GetByName(ctx, hubName)
	if err == ErrHubNotFound {
		return Availability{HubName: hubName, Found: false}, nil
	}
	if err != nil {
		return Availability{}, err
	}
	n, err := s.store.CountAvailableBikes(ctx, h.ID)
	if err != nil {
		return Availability{}, err
	}
	return Availability{HubName: h.Name, Found: true, AvailableBikes: n}, nil
}

func (s *Service) Overview(ctx context.Context) ([]Overview, error) {
	return s.store.ListOverview(ctx)
}

func (s *Service) Get(ctx context.Context, hubName string) (*Hub, error) {
	return s.store.GetByName(ctx, hubName)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Hub, error) {
	return s.store.GetByID(ctx, id)
}

// FreeStation suggests a station at the hub that can still take a bike.
func (s *Service) FreeStation(ctx context.Context, hubID int64) (*Station, error) {
	return s.store.StationWithFreeSlot(ctx, hubID)
}

// Nearby ranks hubs by great-circle distance from the rider, bounded by radiusKm,
// and attaches availability counts. The closest hub also gets a walking ETA when
// the maps client is configured.
func (s *Service) Nearby(ctx context.Context, from types.Point, radiusKm float64, limit int) ([]NearbyHub, error) {
	hubs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []NearbyHub
	for _, h := range hubs {
		d := HaversineM(from, types.Point{Lat: h.Lat, Lon: h.Lon}) / 1000.0
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		out = append(out, NearbyHub{Hub: h, DistanceKm: d})
	}
	sortByDistance(out, func(n NearbyHub) float64 { return n.DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	for i := range out {
		n, err := s.store.CountAvailableBikes(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].AvailableBikes = n
	}

	if len(out) > 0 && s.walker != nil {
		eta, err := s.walker.WalkingETA(ctx, from, types.Point{Lat: out[0].Lat, Lon: out[0].Lon})
		if err == nil {
			out[0].WalkingETA = eta
		}
	}
	return out, nil
}
