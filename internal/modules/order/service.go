// README: Order service resolves orders for a tenant and applies state transitions, including QR activation.
package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// Repository is the persistence the service needs; *Store implements it.
type Repository interface {
	GetForTenant(ctx context.Context, id, tenantID types.ID) (*Order, error)
	GetByNumber(ctx context.Context, number string, tenantID types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id, tenantID types.ID, from, to Status, version int, driverID *types.ID) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrWrongDriver  = errors.New("order is assigned to another driver")
)

const (
	ScanModeSigned = "signed"
	ScanModeSimple = "simple"
)

type ActivateCommand struct {
	OrderID  types.ID
	TenantID types.ID
	DriverID types.ID
	ScanMode string
}

type AdvanceCommand struct {
	OrderID   types.ID
	TenantID  types.ID
	To        Status
	ActorType string
	ActorID   types.ID
}

// Resolve fetches an order by id within the caller's tenant. Ids that are not
// UUIDs cannot exist and resolve to ErrNotFound.
func (s *Service) Resolve(ctx context.Context, id, tenantID types.ID) (*Order, error) {
	if id == "" || tenantID == "" {
		return nil, ErrBadRequest
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, ErrNotFound
	}
	return s.store.GetForTenant(ctx, id, tenantID)
}

func (s *Service) ResolveByNumber(ctx context.Context, number string, tenantID types.ID) (*Order, error) {
	if number == "" || tenantID == "" {
		return nil, ErrBadRequest
	}
	return s.store.GetByNumber(ctx, number, tenantID)
}

// ResolveKey handles legacy bare-key codes: a UUID is an order id, anything
// else is an order number.
func (s *Service) ResolveKey(ctx context.Context, key string, tenantID types.ID) (*Order, error) {
	if _, err := uuid.Parse(key); err == nil {
		return s.Resolve(ctx, types.ID(key), tenantID)
	}
	return s.ResolveByNumber(ctx, key, tenantID)
}

// Activate moves an assigned order to activated. A second activation of the
// same order fails with ErrInvalidState, which is what makes a scanned code
// effectively single-use.
func (s *Service) Activate(ctx context.Context, cmd ActivateCommand) (*Order, error) {
	o, err := s.Resolve(ctx, cmd.OrderID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusActivated) {
		return nil, ErrInvalidState
	}
	var driverID *types.ID
	if cmd.DriverID != "" {
		if o.DriverID != nil && *o.DriverID != cmd.DriverID {
			return nil, ErrWrongDriver
		}
		driverID = &cmd.DriverID
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.TenantID, o.Status, StatusActivated, o.StatusVersion, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := s.now()
	s.appendEvent(ctx, &Event{
		OrderID:    o.ID,
		TenantID:   o.TenantID,
		FromStatus: o.Status,
		ToStatus:   StatusActivated,
		ActorType:  "driver",
		ActorID:    driverID,
		ScanMode:   cmd.ScanMode,
		CreatedAt:  now,
	})

	o.Status = StatusActivated
	o.StatusVersion++
	o.ActivatedAt = &now
	if driverID != nil {
		o.DriverID = driverID
	}
	return o, nil
}

// Advance applies any other allowed transition, e.g. in_transit -> arrived.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*Order, error) {
	if cmd.To == "" || cmd.To == StatusActivated {
		return nil, ErrBadRequest
	}
	o, err := s.Resolve(ctx, cmd.OrderID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.TenantID, o.Status, cmd.To, o.StatusVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	var actorID *types.ID
	if cmd.ActorID != "" {
		actorID = &cmd.ActorID
	}
	s.appendEvent(ctx, &Event{
		OrderID:    o.ID,
		TenantID:   o.TenantID,
		FromStatus: o.Status,
		ToStatus:   cmd.To,
		ActorType:  cmd.ActorType,
		ActorID:    actorID,
		CreatedAt:  s.now(),
	})
	o.Status = cmd.To
	o.StatusVersion++
	return o, nil
}

// appendEvent records history; the transition itself already committed, so a
// failed insert is logged and not returned.
func (s *Service) appendEvent(ctx context.Context, e *Event) {
	if err := s.store.AppendEvent(ctx, e); err != nil {
		slog.Error("order: append event failed", "order_id", e.OrderID, "to", e.ToStatus, "err", err)
	}
}
