// README: Order aggregate, status definitions and the delivery state flow.
package order

import (
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusActivated Status = "activated"
	StatusInTransit Status = "in_transit"
	StatusArrived   Status = "arrived"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID            types.ID
	TenantID      types.ID
	OrderNumber   string
	DriverID      *types.ID
	Status        Status
	StatusVersion int
	Pickup        types.Point
	Dropoff       types.Point
	CreatedAt     time.Time
	ActivatedAt   *time.Time
	CompletedAt   *time.Time
}

type Event struct {
	ID         int64
	OrderID    types.ID
	TenantID   types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	ScanMode   string
	CreatedAt  time.Time
}

// AllowedTransitions represents the delivery flow as code. Activation by QR
// scan is the only way out of assigned other than cancellation, and an
// activated order cannot be activated again.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusActivated, StatusCancelled},
	StatusActivated: {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusArrived},
	StatusArrived:   {StatusDelivered},
	StatusDelivered: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Trackable reports whether live tracking makes sense for the status.
func (o *Order) Trackable() bool {
	switch o.Status {
	case StatusActivated, StatusInTransit, StatusArrived:
		return true
	}
	return false
}
