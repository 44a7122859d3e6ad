package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// ErrRouteUnavailable is returned when the directions backend produced no
// usable route. Callers degrade to straight-line estimates.
var ErrRouteUnavailable = errors.New("route unavailable")

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// PlannedRoute returns the decoded overview polyline of the first driving
// route between origin and destination.
func (s *RouteService) PlannedRoute(ctx context.Context, origin, destination types.Point) ([]types.Point, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: maps api error: %v", ErrRouteUnavailable, err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: no route found", ErrRouteUnavailable)
	}

	decoded, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: decode polyline: %v", ErrRouteUnavailable, err)
	}
	if len(decoded) < 2 {
		return nil, fmt.Errorf("%w: polyline has %d points", ErrRouteUnavailable, len(decoded))
	}
	path := make([]types.Point, len(decoded))
	for i, ll := range decoded {
		path[i] = types.Point{Lat: ll.Lat, Lng: ll.Lng}
	}
	return path, nil
}
