package tracking

import (
	"math"
	"testing"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// straightRoute runs east along the equator in 11 vertices, ~11.1km total.
func straightRoute() *Route {
	path := make([]types.Point, 0, 11)
	for i := 0; i <= 10; i++ {
		path = append(path, types.Point{Lat: 0, Lng: float64(i) * 0.01})
	}
	return NewRoute(path)
}

func TestNewRoute_TooShort(t *testing.T) {
	if NewRoute(nil) != nil || NewRoute([]types.Point{{Lat: 1, Lng: 1}}) != nil {
		t.Fatal("expected nil route for fewer than two vertices")
	}
}

func TestProgress_MonotonicAlongStraightRoute(t *testing.T) {
	r := straightRoute()
	prev := -1.0
	for i := 0; i <= 40; i++ {
		// Slight lateral jitter keeps the vehicle near but not on the line.
		lat := 0.0002
		if i%2 == 1 {
			lat = -0.0002
		}
		p := r.Progress(types.Point{Lat: lat, Lng: float64(i) * 0.0025}, 300)
		if p.ProgressPercentage < prev {
			t.Fatalf("step %d: progress went from %f to %f", i, prev, p.ProgressPercentage)
		}
		prev = p.ProgressPercentage
	}
	if math.Abs(prev-100) > 1e-6 {
		t.Fatalf("final progress = %f, want 100", prev)
	}
}

func TestProgress_DistancesAddUp(t *testing.T) {
	r := straightRoute()
	p := r.Progress(types.Point{Lat: 0.0001, Lng: 0.0337}, 300)

	if got := p.CompletedDistanceMeters + p.RemainingDistanceMeters; math.Abs(got-r.Length()) > 1e-6 {
		t.Errorf("completed+remaining = %f, want %f", got, r.Length())
	}
	if math.Abs(p.ProgressPercentage-33.7) > 0.1 {
		t.Errorf("progress = %f, want ~33.7", p.ProgressPercentage)
	}
	if !p.IsOnRoute || !p.RouteAvailable {
		t.Errorf("expected on route with route available, got %+v", p)
	}
	if n := len(p.CompletedPath); n != 5 {
		t.Errorf("completed path vertices = %d, want 5", n)
	}
	if p.CompletedPath[len(p.CompletedPath)-1] != p.RemainingPath[0] {
		t.Error("completed and remaining paths must meet at the snapped point")
	}
}

func TestProgress_OffRoute(t *testing.T) {
	r := straightRoute()
	// ~1.1km north of the route.
	p := r.Progress(types.Point{Lat: 0.01, Lng: 0.05}, 300)
	if p.IsOnRoute {
		t.Fatalf("expected off route, snap distance %f", p.SnapDistance)
	}
	if p.ProgressPercentage < 49 || p.ProgressPercentage > 51 {
		t.Errorf("progress still computed off route: got %f", p.ProgressPercentage)
	}
}

func TestProgress_ClampedAtEnds(t *testing.T) {
	r := straightRoute()
	if p := r.Progress(types.Point{Lat: 0, Lng: -0.05}, 300); p.ProgressPercentage != 0 {
		t.Errorf("before start = %f", p.ProgressPercentage)
	}
	if p := r.Progress(types.Point{Lat: 0, Lng: 0.2}, 300); p.ProgressPercentage != 100 || p.RemainingDistanceMeters != 0 {
		t.Errorf("past end = %+v", p)
	}
}

func TestStraightLineProgress(t *testing.T) {
	origin := types.Point{Lat: 0, Lng: 0}
	dest := types.Point{Lat: 0, Lng: 0.1}

	p := StraightLineProgress(origin, types.Point{Lat: 0, Lng: 0.025}, dest)
	if p.RouteAvailable || p.IsOnRoute {
		t.Errorf("degraded progress must not claim a route: %+v", p)
	}
	if math.Abs(p.ProgressPercentage-25) > 0.01 {
		t.Errorf("progress = %f, want 25", p.ProgressPercentage)
	}

	// Moving away from the destination never yields negative progress.
	if p := StraightLineProgress(origin, types.Point{Lat: 0, Lng: -0.05}, dest); p.ProgressPercentage != 0 {
		t.Errorf("behind origin = %f", p.ProgressPercentage)
	}
	if p := StraightLineProgress(dest, dest, dest); p.ProgressPercentage != 100 {
		t.Errorf("zero-length trip = %f", p.ProgressPercentage)
	}
}
