package tracking

import (
	"sync"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// Tracker owns the rolling window and derived state for one trip. Ingest
// calls are serialized by mu, so concurrent location pushes for the same
// trip cannot interleave.
type Tracker struct {
	mu     sync.Mutex
	trip   Trip
	route  *Route
	window *Window
	cfg    config.TrackingConfig
	now    func() time.Time

	last   Update
	hasAny bool
}

func NewTracker(trip Trip, route *Route, cfg config.TrackingConfig) *Tracker {
	return &Tracker{
		trip:   trip,
		route:  route,
		window: NewWindow(cfg.MaxSamples, cfg.MaxAge),
		cfg:    cfg,
		now:    time.Now,
	}
}

func (t *Tracker) Trip() Trip {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trip
}

func (t *Tracker) RouteAvailable() bool { return t.route != nil }

// Ingest adds s to the window and recomputes progress and ETA. Rejected
// samples leave the previous state intact.
func (t *Tracker) Ingest(s Sample) (Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.window.Add(s); err != nil {
		return Update{}, err
	}

	var progress RouteProgress
	if t.route != nil {
		progress = t.route.Progress(s.Position, t.cfg.OffRouteMeters)
	} else {
		progress = StraightLineProgress(t.origin(), s.Position, t.trip.Destination)
	}

	samples := t.window.Samples()
	eta := EstimateETA(samples, progress.RemainingDistanceMeters, progress.IsOnRoute, t.now(), ETAParams{
		FloorSpeedMps:     t.cfg.FloorSpeedMps,
		TrendBand:         t.cfg.TrendBand,
		MinSamplesForHigh: t.cfg.MinSamplesForHigh,
	})

	t.last = Update{
		TripID:   t.trip.ID,
		TenantID: t.trip.TenantID,
		Latest:   s,
		Progress: progress,
		ETA:      eta,
		Samples:  len(samples),
	}
	t.hasAny = true
	return t.last, nil
}

// origin falls back to the first sample seen when the trip was started
// without a valid origin.
func (t *Tracker) origin() types.Point {
	if t.trip.Origin.Valid() && (t.trip.Origin != types.Point{}) {
		return t.trip.Origin
	}
	t.trip.Origin = t.window.samples[0].Position
	return t.trip.Origin
}

// Snapshot returns the state after the most recent accepted sample.
func (t *Tracker) Snapshot() (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasAny
}
