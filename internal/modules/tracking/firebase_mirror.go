package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/messaging"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// FirebaseMirror publishes live trip state to Realtime Database under
// trips/{tenant}/{trip}, where the mobile and dashboard clients listen, and
// notifies the tenant's dispatch topic over FCM when a vehicle leaves its
// planned route.
type FirebaseMirror struct {
	dbClient  *db.Client
	msgClient *messaging.Client

	mu       sync.Mutex
	offRoute map[types.ID]bool
}

func NewFirebaseMirror(ctx context.Context, app *firebase.App) (*FirebaseMirror, error) {
	dbClient, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase RTDB client: %w", err)
	}
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return &FirebaseMirror{
		dbClient:  dbClient,
		msgClient: msgClient,
		offRoute:  make(map[types.ID]bool),
	}, nil
}

func (m *FirebaseMirror) Name() string { return "firebase" }

// rtdbTripEntry is what clients read from trips/{tenant}/{trip}.
type rtdbTripEntry struct {
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
	Timestamp          int64   `json:"timestamp"`
	ProgressPercentage float64 `json:"progressPercentage"`
	RemainingMeters    float64 `json:"remainingMeters"`
	RemainingSeconds   float64 `json:"remainingSeconds"`
	EstimatedArrival   int64   `json:"estimatedArrival"`
	Confidence         string  `json:"confidence"`
	OnRoute            bool    `json:"onRoute"`
}

func tripRef(tenantID, tripID types.ID) string {
	return fmt.Sprintf("trips/%s/%s", tenantID, tripID)
}

func (m *FirebaseMirror) TripUpdated(ctx context.Context, u Update) error {
	entry := rtdbTripEntry{
		Lat:                u.Latest.Position.Lat,
		Lng:                u.Latest.Position.Lng,
		Timestamp:          u.Latest.TimestampMs,
		ProgressPercentage: u.Progress.ProgressPercentage,
		RemainingMeters:    u.Progress.RemainingDistanceMeters,
		RemainingSeconds:   u.ETA.RemainingDurationSeconds,
		EstimatedArrival:   u.ETA.EstimatedArrival.UnixMilli(),
		Confidence:         string(u.ETA.Confidence),
		OnRoute:            u.Progress.IsOnRoute,
	}
	if err := m.dbClient.NewRef(tripRef(u.TenantID, u.TripID)).Set(ctx, entry); err != nil {
		return fmt.Errorf("writing trip entry: %w", err)
	}

	if m.leftRoute(u) {
		return m.notifyOffRoute(ctx, u)
	}
	return nil
}

// leftRoute reports an on-route to off-route transition. Trips without a
// planned route never notify.
func (m *FirebaseMirror) leftRoute(u Update) bool {
	if !u.Progress.RouteAvailable {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.offRoute[u.TripID]
	m.offRoute[u.TripID] = !u.Progress.IsOnRoute
	return !was && !u.Progress.IsOnRoute
}

func (m *FirebaseMirror) notifyOffRoute(ctx context.Context, u Update) error {
	msg := &messaging.Message{
		Topic: "dispatch-" + string(u.TenantID),
		Data: map[string]string{
			"type":          "trip_off_route",
			"trip_id":       string(u.TripID),
			"lat":           strconv.FormatFloat(u.Latest.Position.Lat, 'f', 6, 64),
			"lng":           strconv.FormatFloat(u.Latest.Position.Lng, 'f', 6, 64),
			"snap_distance": strconv.FormatFloat(u.Progress.SnapDistance, 'f', 0, 64),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	id, err := m.msgClient.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending off-route FCM for trip %s: %w", u.TripID, err)
	}
	slog.Info("tracking: off-route notice sent", "trip_id", u.TripID, "message_id", id)
	return nil
}

func (m *FirebaseMirror) TripEnded(ctx context.Context, trip Trip) error {
	m.mu.Lock()
	delete(m.offRoute, trip.ID)
	m.mu.Unlock()
	if err := m.dbClient.NewRef(tripRef(trip.TenantID, trip.ID)).Delete(ctx); err != nil {
		return fmt.Errorf("removing trip entry: %w", err)
	}
	return nil
}
