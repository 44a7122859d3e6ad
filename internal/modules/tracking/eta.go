package tracking

import (
	"math"
	"time"
)

// minSpeedInterval below which two samples are treated as simultaneous.
const minSpeedInterval = 0.001

type ETAParams struct {
	FloorSpeedMps     float64
	TrendBand         float64
	MinSamplesForHigh int
}

// EstimateETA derives speeds, trend and a remaining-duration estimate from
// the window samples (oldest first).
func EstimateETA(samples []Sample, remainingMeters float64, onRoute bool, now time.Time, p ETAParams) ETAEstimate {
	current, haveCurrent := currentSpeed(samples)
	average := averageSpeed(samples)

	speed := math.Max(average, p.FloorSpeedMps)
	var remaining float64
	if speed > 0 {
		remaining = remainingMeters / speed
	}

	return ETAEstimate{
		RemainingDurationSeconds: remaining,
		EstimatedArrival:         now.Add(time.Duration(remaining * float64(time.Second))),
		CurrentSpeed:             current,
		AverageSpeed:             average,
		SpeedTrend:               speedTrend(current, average, haveCurrent, p.TrendBand),
		Confidence:               confidence(len(samples), onRoute, haveCurrent, p.MinSamplesForHigh),
	}
}

func currentSpeed(samples []Sample) (float64, bool) {
	n := len(samples)
	if n < 2 {
		return 0, false
	}
	a, b := samples[n-2], samples[n-1]
	dt := float64(b.TimestampMs-a.TimestampMs) / 1000
	if dt < minSpeedInterval {
		return 0, false
	}
	return haversineMeters(a.Position, b.Position) / dt, true
}

// averageSpeed is the travelled path length over the window's time span.
func averageSpeed(samples []Sample) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}
	span := float64(samples[n-1].TimestampMs-samples[0].TimestampMs) / 1000
	if span < minSpeedInterval {
		return 0
	}
	var dist float64
	for i := 1; i < n; i++ {
		dist += haversineMeters(samples[i-1].Position, samples[i].Position)
	}
	return dist / span
}

func speedTrend(current, average float64, haveCurrent bool, band float64) SpeedTrend {
	switch {
	case !haveCurrent:
		return TrendStable
	case current > average*(1+band):
		return TrendIncreasing
	case current < average*(1-band):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func confidence(samples int, onRoute, haveCurrent bool, minSamples int) Confidence {
	if !haveCurrent {
		return ConfidenceLow
	}
	enough := samples >= minSamples
	switch {
	case enough && onRoute:
		return ConfidenceHigh
	case enough || onRoute:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
