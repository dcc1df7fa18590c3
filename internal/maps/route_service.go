package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"poring/internal/types"
)

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// WalkingETA returns a human-readable walking duration from the rider to a hub.
func (s *RouteService) WalkingETA(ctx context.Context, from, to types.Point) (string, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lon),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lon),
		Mode:        maps.TravelModeWalking,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return "", fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return "", fmt.Errorf("no route found")
	}
	return routes[0].Legs[0].Duration.String(), nil
}
