package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/metrics"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type stubPlanner struct {
	path  []types.Point
	err   error
	calls int
}

func (p *stubPlanner) PlannedRoute(_ context.Context, _, _ types.Point) ([]types.Point, error) {
	p.calls++
	return p.path, p.err
}

type recordingSink struct {
	mu      sync.Mutex
	updates []Update
	ended   []Trip
	err     error
}

func (s *recordingSink) TripUpdated(_ context.Context, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return s.err
}

func (s *recordingSink) TripEnded(_ context.Context, trip Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, trip)
	return s.err
}

func testTrip() Trip {
	return Trip{
		ID:          "trip-1",
		TenantID:    "tenant-9",
		Origin:      types.Point{Lat: 0.0001, Lng: 0},
		Destination: types.Point{Lat: 0, Lng: 0.1},
	}
}

func TestRegistry_StartUsesPlannedRoute(t *testing.T) {
	planner := &stubPlanner{path: straightRoute().Path()}
	reg := NewRegistry(config.DefaultTracking(), planner)

	tr, err := reg.Start(context.Background(), testTrip())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !tr.RouteAvailable() {
		t.Fatal("expected planned route")
	}

	again, err := reg.Start(context.Background(), testTrip())
	if err != nil || again != tr {
		t.Fatalf("second Start should return the same tracker, err=%v", err)
	}
	if planner.calls != 1 {
		t.Errorf("planner calls = %d, want 1", planner.calls)
	}
	if reg.Active() != 1 {
		t.Errorf("active = %d", reg.Active())
	}
}

func TestRegistry_RouteFailureDegrades(t *testing.T) {
	before := testutil.ToFloat64(metrics.RouteFetchFailuresTotal)
	reg := NewRegistry(config.DefaultTracking(), &stubPlanner{err: errors.New("quota exceeded")})

	tr, err := reg.Start(context.Background(), testTrip())
	if err != nil {
		t.Fatalf("route failure must not fail Start: %v", err)
	}
	if tr.RouteAvailable() {
		t.Fatal("expected no route")
	}
	if got := testutil.ToFloat64(metrics.RouteFetchFailuresTotal) - before; got != 1 {
		t.Errorf("route failures delta = %f", got)
	}

	u, err := reg.Ingest(context.Background(), "tenant-9", "trip-1", sampleAt(0, 0.05, 1000))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if u.Progress.RouteAvailable || u.Progress.ProgressPercentage < 49 || u.Progress.ProgressPercentage > 51 {
		t.Errorf("straight-line progress = %+v", u.Progress)
	}
}

func TestRegistry_TenantIsolation(t *testing.T) {
	reg := NewRegistry(config.DefaultTracking(), nil)
	if _, err := reg.Start(context.Background(), testTrip()); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Ingest(context.Background(), "tenant-X", "trip-1", sampleAt(0, 0, 1000)); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("foreign ingest err = %v", err)
	}
	if _, err := reg.Snapshot("tenant-X", "trip-1"); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("foreign snapshot err = %v", err)
	}
	if err := reg.End(context.Background(), "tenant-X", "trip-1"); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("foreign end err = %v", err)
	}
	other := testTrip()
	other.TenantID = "tenant-X"
	if _, err := reg.Start(context.Background(), other); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("foreign start err = %v", err)
	}
	if reg.Active() != 1 {
		t.Errorf("active = %d", reg.Active())
	}
}

func TestRegistry_IngestSnapshotEnd(t *testing.T) {
	sink := &recordingSink{}
	reg := NewRegistry(config.DefaultTracking(), &stubPlanner{path: straightRoute().Path()}, sink)
	ctx := context.Background()
	if _, err := reg.Start(ctx, testTrip()); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Snapshot("tenant-9", "trip-1"); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("empty snapshot err = %v", err)
	}

	for i, lng := range []float64{0.01, 0.02, 0.03} {
		if _, err := reg.Ingest(ctx, "tenant-9", "trip-1", sampleAt(0, lng, int64(i+1)*60_000)); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	if _, err := reg.Ingest(ctx, "tenant-9", "trip-1", sampleAt(0, 0.04, 60_000)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("stale sample err = %v", err)
	}

	snap, err := reg.Snapshot("tenant-9", "trip-1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Samples != 3 || snap.Latest.TimestampMs != 180_000 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(sink.updates) != 3 {
		t.Errorf("sink updates = %d, want 3", len(sink.updates))
	}

	if err := reg.End(ctx, "tenant-9", "trip-1"); err != nil {
		t.Fatal(err)
	}
	if len(sink.ended) != 1 || sink.ended[0].ID != "trip-1" {
		t.Errorf("sink ended = %+v", sink.ended)
	}
	if _, err := reg.Snapshot("tenant-9", "trip-1"); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("snapshot after end err = %v", err)
	}
	if err := reg.End(ctx, "tenant-9", "trip-1"); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("double end err = %v", err)
	}
}

func TestRegistry_SinkFailureKeepsState(t *testing.T) {
	sink := &recordingSink{err: errors.New("redis down")}
	reg := NewRegistry(config.DefaultTracking(), nil, sink)
	ctx := context.Background()
	_, _ = reg.Start(ctx, testTrip())

	if _, err := reg.Ingest(ctx, "tenant-9", "trip-1", sampleAt(0, 0.01, 1000)); err != nil {
		t.Fatalf("sink failure leaked into Ingest: %v", err)
	}
	if snap, err := reg.Snapshot("tenant-9", "trip-1"); err != nil || snap.Samples != 1 {
		t.Fatalf("snapshot = %+v, %v", snap, err)
	}
}

func TestRegistry_ConcurrentIngestIsSerialized(t *testing.T) {
	reg := NewRegistry(config.DefaultTracking(), nil)
	ctx := context.Background()
	_, _ = reg.Start(ctx, testTrip())

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			_, err := reg.Ingest(ctx, "tenant-9", "trip-1", sampleAt(0, 0.001, ts*1000))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, ErrOutOfOrder) {
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	snap, err := reg.Snapshot("tenant-9", "trip-1")
	if err != nil {
		t.Fatal(err)
	}
	if accepted == 0 || snap.Samples != accepted {
		t.Fatalf("accepted=%d samples=%d", accepted, snap.Samples)
	}

	tr, _ := reg.lookup("tenant-9", "trip-1")
	samples := tr.window.Samples()
	for i := 1; i < len(samples); i++ {
		if samples[i].TimestampMs <= samples[i-1].TimestampMs {
			t.Fatalf("window out of order at %d: %+v", i, samples)
		}
	}
}
