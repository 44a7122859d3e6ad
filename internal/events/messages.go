package events

import (
	"context"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type OrderActivated struct {
	OrderID     types.ID  `json:"orderId"`
	TenantID    types.ID  `json:"tenantId"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	DriverID    types.ID  `json:"driverId,omitempty"`
	ScanMode    string    `json:"scanMode"`
	ActivatedAt time.Time `json:"activatedAt"`
}

func NewOrderActivated(o *order.Order, scanMode string) OrderActivated {
	msg := OrderActivated{
		OrderID:     o.ID,
		TenantID:    o.TenantID,
		OrderNumber: o.OrderNumber,
		ScanMode:    scanMode,
	}
	if o.DriverID != nil {
		msg.DriverID = *o.DriverID
	}
	if o.ActivatedAt != nil {
		msg.ActivatedAt = *o.ActivatedAt
	}
	return msg
}

type TripProgress struct {
	TripID             types.ID            `json:"tripId"`
	TenantID           types.ID            `json:"tenantId"`
	Position           types.Point         `json:"position"`
	TimestampMs        int64               `json:"timestampMs"`
	ProgressPercentage float64             `json:"progressPercentage"`
	RemainingMeters    float64             `json:"remainingMeters"`
	RemainingSeconds   float64             `json:"remainingSeconds"`
	Confidence         tracking.Confidence `json:"confidence"`
	IsOnRoute          bool                `json:"isOnRoute"`
}

type TripEnded struct {
	TripID   types.ID `json:"tripId"`
	TenantID types.ID `json:"tenantId"`
}

// TripSink forwards tracking updates to the broker. Paths are left out of
// the message; consumers that need them read the progress endpoint.
type TripSink struct {
	pub Publisher
}

func NewTripSink(pub Publisher) *TripSink {
	return &TripSink{pub: pub}
}

func (s *TripSink) Name() string { return "amqp" }

func (s *TripSink) TripUpdated(ctx context.Context, u tracking.Update) error {
	return s.pub.Publish(ctx, KeyTripProgress, TripProgress{
		TripID:             u.TripID,
		TenantID:           u.TenantID,
		Position:           u.Latest.Position,
		TimestampMs:        u.Latest.TimestampMs,
		ProgressPercentage: u.Progress.ProgressPercentage,
		RemainingMeters:    u.Progress.RemainingDistanceMeters,
		RemainingSeconds:   u.ETA.RemainingDurationSeconds,
		Confidence:         u.ETA.Confidence,
		IsOnRoute:          u.Progress.IsOnRoute,
	})
}

func (s *TripSink) TripEnded(ctx context.Context, trip tracking.Trip) error {
	return s.pub.Publish(ctx, KeyTripEnded, TripEnded{TripID: trip.ID, TenantID: trip.TenantID})
}
