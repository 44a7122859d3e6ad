package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

func TestStore_CacheRoundTrip(t *testing.T) {
	redisAddr := os.Getenv("ORDERTRACK_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("ORDERTRACK_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	// DB nil: snapshot persistence is covered by the order store tests' schema.
	store := NewStore(nil, rdb, time.Minute)
	ctx := context.Background()

	tripID := types.ID(fmt.Sprintf("trip_test_%d", time.Now().UnixNano()))
	tenant := types.ID("tenant-test")
	u := Update{
		TripID:   tripID,
		TenantID: tenant,
		Latest:   Sample{Position: types.Point{Lat: 25.0478, Lng: 121.5318}, TimestampMs: time.Now().UnixMilli()},
		Progress: RouteProgress{ProgressPercentage: 42, IsOnRoute: true, RouteAvailable: true},
		Samples:  3,
	}
	if err := store.TripUpdated(ctx, u); err != nil {
		t.Fatalf("TripUpdated: %v", err)
	}

	got, err := store.CachedUpdate(ctx, tenant, tripID)
	if err != nil {
		t.Fatalf("CachedUpdate: %v", err)
	}
	if got.Progress.ProgressPercentage != 42 || got.Samples != 3 {
		t.Errorf("cached = %+v", got)
	}
	if _, err := store.CachedUpdate(ctx, "tenant-other", tripID); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("foreign tenant read err = %v", err)
	}

	ttl, err := rdb.TTL(ctx, progressKey(tripID)).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, err = %v", ttl, err)
	}

	near, err := store.NearbyVehicles(ctx, tenant, types.Point{Lat: 25.048, Lng: 121.532}, 500)
	if err != nil {
		t.Fatalf("NearbyVehicles: %v", err)
	}
	found := false
	for _, id := range near {
		found = found || id == tripID
	}
	if !found {
		t.Errorf("trip %s not in nearby set %v", tripID, near)
	}

	if err := store.TripEnded(ctx, Trip{ID: tripID, TenantID: tenant}); err != nil {
		t.Fatalf("TripEnded: %v", err)
	}
	if _, err := store.CachedUpdate(ctx, tenant, tripID); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("after end err = %v", err)
	}
}

func TestStore_NilClientsAreNoops(t *testing.T) {
	store := NewStore(nil, nil, time.Minute)
	ctx := context.Background()
	if err := store.TripUpdated(ctx, Update{TripID: "t", TenantID: "x"}); err != nil {
		t.Errorf("TripUpdated: %v", err)
	}
	if err := store.TripEnded(ctx, Trip{ID: "t", TenantID: "x"}); err != nil {
		t.Errorf("TripEnded: %v", err)
	}
	if _, err := store.CachedUpdate(ctx, "x", "t"); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("CachedUpdate err = %v", err)
	}
}
