package tracking

import (
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// Route is a planned polyline with its cumulative great-circle lengths
// precomputed. Immutable after NewRoute.
type Route struct {
	path []types.Point
	cum  []float64
}

// NewRoute returns nil for paths with fewer than two vertices; callers treat
// a nil route as "no planned route".
func NewRoute(path []types.Point) *Route {
	if len(path) < 2 {
		return nil
	}
	p := make([]types.Point, len(path))
	copy(p, path)
	return &Route{path: p, cum: cumulativeLengths(p)}
}

func (r *Route) Length() float64 { return r.cum[len(r.cum)-1] }

func (r *Route) Path() []types.Point {
	out := make([]types.Point, len(r.path))
	copy(out, r.path)
	return out
}

// snap locates pos on the route. The nearest vertex is chosen in lat/lng
// space, then pos is projected onto the segments touching that vertex. It
// returns the segment start index, the snapped point and the completed
// distance along the route.
func (r *Route) snap(pos types.Point) (int, types.Point, float64) {
	nearest := 0
	best := planarDistance(pos, r.path[0])
	for i := 1; i < len(r.path); i++ {
		if d := planarDistance(pos, r.path[i]); d < best {
			nearest, best = i, d
		}
	}

	seg, snapped, bestDist := -1, types.Point{}, 0.0
	var frac float64
	for _, s := range []int{nearest - 1, nearest} {
		if s < 0 || s >= len(r.path)-1 {
			continue
		}
		p, t := projectOnSegment(pos, r.path[s], r.path[s+1])
		if d := haversineMeters(pos, p); seg < 0 || d < bestDist {
			seg, snapped, bestDist, frac = s, p, d, t
		}
	}
	if frac >= 1 {
		return seg, snapped, r.cum[seg+1]
	}
	segLen := r.cum[seg+1] - r.cum[seg]
	return seg, snapped, r.cum[seg] + frac*segLen
}

// Progress snaps pos onto the route. A vehicle further than offRouteMeters
// from the route is reported off route; the numbers are still computed.
func (r *Route) Progress(pos types.Point, offRouteMeters float64) RouteProgress {
	seg, snapped, completed := r.snap(pos)
	total := r.Length()
	completed = clamp(completed, 0, total)

	completedPath := make([]types.Point, 0, seg+2)
	completedPath = append(completedPath, r.path[:seg+1]...)
	completedPath = append(completedPath, snapped)

	remainingPath := make([]types.Point, 0, len(r.path)-seg)
	remainingPath = append(remainingPath, snapped)
	remainingPath = append(remainingPath, r.path[seg+1:]...)

	snapDist := haversineMeters(pos, snapped)
	return RouteProgress{
		ProgressPercentage:      percentage(completed, total),
		CompletedDistanceMeters: completed,
		RemainingDistanceMeters: total - completed,
		CompletedPath:           completedPath,
		RemainingPath:           remainingPath,
		IsOnRoute:               snapDist <= offRouteMeters,
		RouteAvailable:          true,
		SnapDistance:            snapDist,
	}
}

// StraightLineProgress is the degraded estimate used when no planned route
// is available: great-circle distance from origin to destination, with the
// live position measured against the destination. It never claims to be on
// route.
func StraightLineProgress(origin, pos, dest types.Point) RouteProgress {
	total := haversineMeters(origin, dest)
	remaining := haversineMeters(pos, dest)
	completed := clamp(total-remaining, 0, total)
	return RouteProgress{
		ProgressPercentage:      percentage(completed, total),
		CompletedDistanceMeters: completed,
		RemainingDistanceMeters: remaining,
		CompletedPath:           []types.Point{origin, pos},
		RemainingPath:           []types.Point{pos, dest},
		IsOnRoute:               false,
		RouteAvailable:          false,
	}
}

func percentage(completed, total float64) float64 {
	if total <= 0 {
		return 100
	}
	return clamp(100*completed/total, 0, 100)
}
