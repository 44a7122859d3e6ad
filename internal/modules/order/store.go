// README: Order store backed by PostgreSQL. Every read is tenant-scoped.
package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectOrder = `
        SELECT id::text, tenant_id, order_number, driver_id, status, status_version,
               pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
               created_at, activated_at, completed_at
        FROM orders`

func (s *Store) GetForTenant(ctx context.Context, id, tenantID types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, selectOrder+`
        WHERE id = $1 AND tenant_id = $2`, string(id), string(tenantID),
	)
	return scanOrder(row)
}

func (s *Store) GetByNumber(ctx context.Context, number string, tenantID types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, selectOrder+`
        WHERE order_number = $1 AND tenant_id = $2`, number, string(tenantID),
	)
	return scanOrder(row)
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var driverID *string
	err := row.Scan(
		&o.ID, &o.TenantID, &o.OrderNumber, &driverID, &o.Status, &o.StatusVersion,
		&o.Pickup.Lat, &o.Pickup.Lng, &o.Dropoff.Lat, &o.Dropoff.Lng,
		&o.CreatedAt, &o.ActivatedAt, &o.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		d := types.ID(*driverID)
		o.DriverID = &d
	}
	return &o, nil
}

// UpdateStatus applies an optimistic transition; false means another writer
// moved the order first.
func (s *Store) UpdateStatus(ctx context.Context, id, tenantID types.ID, from, to Status, version int, driverID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            status_version = status_version + 1,
            driver_id = COALESCE($2, driver_id),
            activated_at = CASE WHEN $1 = 'activated' THEN NOW() ELSE activated_at END,
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
        WHERE id = $3 AND tenant_id = $4 AND status = $5 AND status_version = $6`,
		string(to),
		toStringPtr(driverID),
		string(id),
		string(tenantID),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO order_state_events (
            order_id, tenant_id, from_status, to_status, actor_type, actor_id, scan_mode, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(e.OrderID),
		string(e.TenantID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.ScanMode,
		e.CreatedAt,
	)
	return err
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
