package tracking

import (
	"testing"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

func TestFirebaseMirror_LeftRouteFiresOncePerExcursion(t *testing.T) {
	m := &FirebaseMirror{offRoute: make(map[types.ID]bool)}
	upd := func(onRoute, routeAvailable bool) Update {
		return Update{TripID: "trip-1", Progress: RouteProgress{IsOnRoute: onRoute, RouteAvailable: routeAvailable}}
	}

	steps := []struct {
		onRoute bool
		want    bool
	}{
		{true, false},
		{false, true},
		{false, false},
		{true, false},
		{false, true},
	}
	for i, s := range steps {
		if got := m.leftRoute(upd(s.onRoute, true)); got != s.want {
			t.Errorf("step %d: leftRoute = %v, want %v", i, got, s.want)
		}
	}

	if m.leftRoute(Update{TripID: "trip-2", Progress: RouteProgress{IsOnRoute: false}}) {
		t.Error("trips without a planned route must not notify")
	}
}

func TestTripRef(t *testing.T) {
	if got := tripRef("tenant-9", "trip-1"); got != "trips/tenant-9/trip-1" {
		t.Errorf("tripRef = %q", got)
	}
}
