package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return c.declareErr
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange, key, msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := newAMQPPublisher(ch, "ordertrack.events"); err != nil {
		t.Fatal(err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "ordertrack.events:topic" {
		t.Fatalf("declared = %v", ch.declared)
	}
}

func TestAMQPPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newAMQPPublisher(ch, "x"); err == nil {
		t.Fatal("expected error")
	}
	if !ch.closed {
		t.Error("channel should be closed after a failed declare")
	}
}

func TestAMQPPublisher_PublishesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	pub, _ := newAMQPPublisher(ch, "ordertrack.events")
	pub.now = func() time.Time { return time.UnixMilli(1_760_000_000_000) }

	activatedAt := time.UnixMilli(1_760_000_000_000).UTC()
	driver := types.ID("driver-7")
	o := &order.Order{ID: "ord-1", TenantID: "tenant-9", OrderNumber: "ORD-1001", DriverID: &driver, ActivatedAt: &activatedAt}
	if err := pub.Publish(context.Background(), KeyOrderActivated, NewOrderActivated(o, order.ScanModeSigned)); err != nil {
		t.Fatal(err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("published = %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "ordertrack.events" || got.key != KeyOrderActivated {
		t.Errorf("exchange/key = %s/%s", got.exchange, got.key)
	}
	if got.msg.ContentType != "application/json" || got.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("publishing = %+v", got.msg)
	}

	var env Envelope
	if err := json.Unmarshal(got.msg.Body, &env); err != nil {
		t.Fatal(err)
	}
	var data OrderActivated
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if env.Type != KeyOrderActivated || data.OrderID != "ord-1" || data.DriverID != "driver-7" || data.ScanMode != "signed" {
		t.Errorf("envelope = %+v data = %+v", env, data)
	}
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	pub, _ := newAMQPPublisher(ch, "x")
	if err := pub.Publish(context.Background(), KeyTripEnded, TripEnded{}); err == nil {
		t.Fatal("expected error")
	}
}

type capturePublisher struct {
	keys []string
	data []any
}

func (c *capturePublisher) Publish(_ context.Context, key string, data any) error {
	c.keys = append(c.keys, key)
	c.data = append(c.data, data)
	return nil
}

func TestTripSink(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewTripSink(pub)
	ctx := context.Background()

	u := tracking.Update{
		TripID:   "ord-1",
		TenantID: "tenant-9",
		Latest:   tracking.Sample{Position: types.Point{Lat: 1, Lng: 2}, TimestampMs: 5},
		Progress: tracking.RouteProgress{ProgressPercentage: 40, RemainingDistanceMeters: 600, IsOnRoute: true},
		ETA:      tracking.ETAEstimate{RemainingDurationSeconds: 60, Confidence: tracking.ConfidenceMedium},
	}
	if err := sink.TripUpdated(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := sink.TripEnded(ctx, tracking.Trip{ID: "ord-1", TenantID: "tenant-9"}); err != nil {
		t.Fatal(err)
	}

	if len(pub.keys) != 2 || pub.keys[0] != KeyTripProgress || pub.keys[1] != KeyTripEnded {
		t.Fatalf("keys = %v", pub.keys)
	}
	p := pub.data[0].(TripProgress)
	if p.ProgressPercentage != 40 || p.RemainingSeconds != 60 || p.Confidence != tracking.ConfidenceMedium {
		t.Errorf("progress message = %+v", p)
	}
}

func TestDiscard(t *testing.T) {
	if err := (Discard{}).Publish(context.Background(), KeyTripEnded, nil); err != nil {
		t.Fatal(err)
	}
}
