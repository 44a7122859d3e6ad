// README: Pure geographic helpers for distances and segment projection.
package tracking

import (
	"math"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

const earthRadiusMeters = 6371000.0

// haversineMeters returns the great-circle distance in metres between two
// points specified in decimal degrees.
func haversineMeters(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// planarDistance is the Euclidean distance in raw lat/lng space. Only used
// to rank candidates against each other at local scale.
func planarDistance(a, b types.Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

// cumulativeLengths returns, for each vertex, the great-circle length of the
// path from the first vertex to it.
func cumulativeLengths(path []types.Point) []float64 {
	out := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		out[i] = out[i-1] + haversineMeters(path[i-1], path[i])
	}
	return out
}

// projectOnSegment returns the point on segment a-b closest to p and the
// segment fraction t in [0,1]. Longitudes are scaled by cos(lat) so the
// projection is roughly isotropic.
func projectOnSegment(p, a, b types.Point) (types.Point, float64) {
	k := math.Cos(degreesToRadians((a.Lat + b.Lat) / 2))
	ax, ay := a.Lng*k, a.Lat
	bx, by := b.Lng*k, b.Lat
	px, py := p.Lng*k, p.Lat

	dx, dy := bx-ax, by-ay
	den := dx*dx + dy*dy
	if den == 0 {
		return a, 0
	}
	t := ((px-ax)*dx + (py-ay)*dy) / den
	t = math.Max(0, math.Min(1, t))
	return types.Point{Lat: a.Lat + t*(b.Lat-a.Lat), Lng: a.Lng + t*(b.Lng-a.Lng)}, t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
