// README: Trip tracking value types: location samples, route progress and ETA estimates.
package tracking

import (
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type Sample struct {
	Position    types.Point `json:"position"`
	TimestampMs int64       `json:"timestampMs"`
}

type RouteProgress struct {
	ProgressPercentage      float64       `json:"progressPercentage"`
	CompletedDistanceMeters float64       `json:"completedDistanceMeters"`
	RemainingDistanceMeters float64       `json:"remainingDistanceMeters"`
	CompletedPath           []types.Point `json:"completedPath"`
	RemainingPath           []types.Point `json:"remainingPath"`
	IsOnRoute               bool          `json:"isOnRoute"`
	// RouteAvailable is false when no planned route could be fetched and the
	// numbers are straight-line estimates.
	RouteAvailable bool    `json:"routeAvailable"`
	SnapDistance   float64 `json:"snapDistanceMeters"`
}

type SpeedTrend string

const (
	TrendIncreasing SpeedTrend = "increasing"
	TrendDecreasing SpeedTrend = "decreasing"
	TrendStable     SpeedTrend = "stable"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type ETAEstimate struct {
	RemainingDurationSeconds float64    `json:"remainingDurationSeconds"`
	EstimatedArrival         time.Time  `json:"estimatedArrival"`
	CurrentSpeed             float64    `json:"currentSpeedMps"`
	AverageSpeed             float64    `json:"averageSpeedMps"`
	SpeedTrend               SpeedTrend `json:"speedTrend"`
	Confidence               Confidence `json:"confidence"`
}

// Trip identifies what is being tracked. Trips are keyed by order id and
// never visible outside their tenant.
type Trip struct {
	ID          types.ID    `json:"tripId"`
	TenantID    types.ID    `json:"tenantId"`
	Origin      types.Point `json:"origin"`
	Destination types.Point `json:"destination"`
}

// Update is the derived state after one accepted sample.
type Update struct {
	TripID   types.ID      `json:"tripId"`
	TenantID types.ID      `json:"tenantId"`
	Latest   Sample        `json:"latest"`
	Progress RouteProgress `json:"progress"`
	ETA      ETAEstimate   `json:"eta"`
	Samples  int           `json:"samples"`
}
