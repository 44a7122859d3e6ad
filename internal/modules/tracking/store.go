// README: Tracking store: latest trip state cached in Redis (with TTL), live vehicle positions in Redis GEO, snapshots in Postgres.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

const (
	progressKeyFmt = "tracking:trip:%s:progress"
	vehiclesKeyFmt = "tracking:vehicles:%s"
)

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
	ttl   time.Duration
}

// NewStore accepts a nil db or redis client; the corresponding writes are
// then skipped.
func NewStore(db *pgxpool.Pool, redis *redis.Client, ttl time.Duration) *Store {
	return &Store{db: db, redis: redis, ttl: ttl}
}

func (s *Store) Name() string { return "store" }

func progressKey(tripID types.ID) string { return fmt.Sprintf(progressKeyFmt, tripID) }

func vehiclesKey(tenantID types.ID) string { return fmt.Sprintf(vehiclesKeyFmt, tenantID) }

func (s *Store) TripUpdated(ctx context.Context, u Update) error {
	var errs []error
	if s.redis != nil {
		if err := s.cacheUpdate(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := s.appendSnapshot(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) cacheUpdate(ctx context.Context, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, progressKey(u.TripID), data, s.ttl)
	pipe.GeoAdd(ctx, vehiclesKey(u.TenantID), &redis.GeoLocation{
		Name:      string(u.TripID),
		Longitude: u.Latest.Position.Lng,
		Latitude:  u.Latest.Position.Lat,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis cache update: %w", err)
	}
	return nil
}

func (s *Store) appendSnapshot(ctx context.Context, u Update) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO location_snapshots (trip_id, tenant_id, lat, lng, progress_pct, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		string(u.TripID), string(u.TenantID),
		u.Latest.Position.Lat, u.Latest.Position.Lng,
		u.Progress.ProgressPercentage, time.UnixMilli(u.Latest.TimestampMs).UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) TripEnded(ctx context.Context, trip Trip) error {
	if s.redis == nil {
		return nil
	}
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, progressKey(trip.ID))
	pipe.ZRem(ctx, vehiclesKey(trip.TenantID), string(trip.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis cleanup: %w", err)
	}
	return nil
}

// CachedUpdate reads the last cached state of a trip, which may have been
// written by another API instance. Entries of other tenants are reported as
// ErrTripNotFound.
func (s *Store) CachedUpdate(ctx context.Context, tenantID, tripID types.ID) (Update, error) {
	if s.redis == nil {
		return Update{}, ErrTripNotFound
	}
	data, err := s.redis.Get(ctx, progressKey(tripID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Update{}, ErrTripNotFound
	}
	if err != nil {
		return Update{}, fmt.Errorf("redis get: %w", err)
	}
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("decode cached update: %w", err)
	}
	if u.TenantID != tenantID {
		return Update{}, ErrTripNotFound
	}
	return u, nil
}

// NearbyVehicles lists active trips of a tenant within radiusMeters of p.
func (s *Store) NearbyVehicles(ctx context.Context, tenantID types.ID, p types.Point, radiusMeters float64) ([]types.ID, error) {
	if s.redis == nil {
		return nil, nil
	}
	locs, err := s.redis.GeoSearch(ctx, vehiclesKey(tenantID), &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusMeters,
		RadiusUnit: "m",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geosearch: %w", err)
	}
	out := make([]types.ID, len(locs))
	for i, id := range locs {
		out[i] = types.ID(id)
	}
	return out, nil
}
