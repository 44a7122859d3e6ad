package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/metrics"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

var (
	ErrTripNotFound = errors.New("trip not found")
	ErrNoSamples    = errors.New("trip has no location samples yet")
)

// RoutePlanner fetches the planned polyline between two points.
type RoutePlanner interface {
	PlannedRoute(ctx context.Context, origin, dest types.Point) ([]types.Point, error)
}

// Sink receives derived trip state. Sink errors are logged by the Registry
// and never roll back in-memory state.
type Sink interface {
	TripUpdated(ctx context.Context, u Update) error
	TripEnded(ctx context.Context, trip Trip) error
}

// Registry holds one Tracker per active trip. Trips are keyed by order id
// and every lookup checks the tenant.
type Registry struct {
	mu      sync.RWMutex
	trips   map[types.ID]*Tracker
	planner RoutePlanner
	sinks   []Sink
	cfg     config.TrackingConfig
}

func NewRegistry(cfg config.TrackingConfig, planner RoutePlanner, sinks ...Sink) *Registry {
	return &Registry{
		trips:   make(map[types.ID]*Tracker),
		planner: planner,
		sinks:   sinks,
		cfg:     cfg,
	}
}

// Start begins tracking trip. The planned route is fetched first; a failed
// fetch is not an error and the trip falls back to straight-line progress.
// Starting an already active trip returns the existing tracker.
func (r *Registry) Start(ctx context.Context, trip Trip) (*Tracker, error) {
	if trip.ID == "" || trip.TenantID == "" {
		return nil, errors.New("trip id and tenant are required")
	}
	if tr, err := r.lookup(trip.TenantID, trip.ID); err == nil {
		return tr, nil
	}

	route := r.fetchRoute(ctx, trip)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.trips[trip.ID]; ok {
		if existing.trip.TenantID != trip.TenantID {
			return nil, ErrTripNotFound
		}
		return existing, nil
	}
	tr := NewTracker(trip, route, r.cfg)
	r.trips[trip.ID] = tr
	metrics.ActiveTrips.Inc()
	slog.Info("tracking: trip started", "trip_id", trip.ID, "tenant_id", trip.TenantID, "route_available", route != nil)
	return tr, nil
}

func (r *Registry) fetchRoute(ctx context.Context, trip Trip) *Route {
	if r.planner == nil || !trip.Origin.Valid() || !trip.Destination.Valid() {
		return nil
	}
	if r.cfg.RouteRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RouteRequestTimeout)
		defer cancel()
	}
	path, err := r.planner.PlannedRoute(ctx, trip.Origin, trip.Destination)
	if err != nil {
		metrics.RouteFetchFailuresTotal.Inc()
		slog.Warn("tracking: planned route unavailable, using straight line", "trip_id", trip.ID, "err", err)
		return nil
	}
	route := NewRoute(path)
	if route == nil {
		metrics.RouteFetchFailuresTotal.Inc()
		slog.Warn("tracking: planned route too short, using straight line", "trip_id", trip.ID, "vertices", len(path))
	}
	return route
}

// Ingest feeds one location sample into the trip's tracker.
func (r *Registry) Ingest(ctx context.Context, tenantID, tripID types.ID, s Sample) (Update, error) {
	tr, err := r.lookup(tenantID, tripID)
	if err != nil {
		return Update{}, err
	}
	u, err := tr.Ingest(s)
	switch {
	case errors.Is(err, ErrInvalidCoordinate):
		metrics.LocationSamplesTotal.WithLabelValues("invalid").Inc()
		return Update{}, err
	case errors.Is(err, ErrOutOfOrder):
		metrics.LocationSamplesTotal.WithLabelValues("out_of_order").Inc()
		return Update{}, err
	case err != nil:
		return Update{}, err
	}
	metrics.LocationSamplesTotal.WithLabelValues("accepted").Inc()

	for _, sink := range r.sinks {
		if err := sink.TripUpdated(ctx, u); err != nil {
			slog.Error("tracking: sink update failed", "trip_id", tripID, "sink", sinkName(sink), "err", err)
		}
	}
	return u, nil
}

// Snapshot returns the latest derived state of an active trip.
func (r *Registry) Snapshot(tenantID, tripID types.ID) (Update, error) {
	tr, err := r.lookup(tenantID, tripID)
	if err != nil {
		return Update{}, err
	}
	u, ok := tr.Snapshot()
	if !ok {
		return Update{}, ErrNoSamples
	}
	return u, nil
}

// End discards the trip's tracker. Nothing keeps running for it afterwards.
func (r *Registry) End(ctx context.Context, tenantID, tripID types.ID) error {
	r.mu.Lock()
	tr, ok := r.trips[tripID]
	if !ok || tr.trip.TenantID != tenantID {
		r.mu.Unlock()
		return ErrTripNotFound
	}
	delete(r.trips, tripID)
	r.mu.Unlock()

	metrics.ActiveTrips.Dec()
	trip := tr.Trip()
	for _, sink := range r.sinks {
		if err := sink.TripEnded(ctx, trip); err != nil {
			slog.Error("tracking: sink end failed", "trip_id", tripID, "sink", sinkName(sink), "err", err)
		}
	}
	slog.Info("tracking: trip ended", "trip_id", tripID, "tenant_id", tenantID)
	return nil
}

func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trips)
}

// lookup hides trips of other tenants behind ErrTripNotFound.
func (r *Registry) lookup(tenantID, tripID types.ID) (*Tracker, error) {
	r.mu.RLock()
	tr, ok := r.trips[tripID]
	r.mu.RUnlock()
	if !ok || tr.trip.TenantID != tenantID {
		return nil, ErrTripNotFound
	}
	return tr, nil
}

func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "sink"
}
