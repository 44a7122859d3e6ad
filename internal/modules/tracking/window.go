package tracking

import (
	"errors"
	"time"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrOutOfOrder        = errors.New("sample is older than or equal to the latest sample")
)

// Window is a bounded, timestamp-ordered run of samples for one trip. It
// evicts from the front once it holds more than maxSamples or spans more
// than maxAge. Not safe for concurrent use; the Tracker serializes access.
type Window struct {
	samples    []Sample
	maxSamples int
	maxAge     time.Duration
}

func NewWindow(maxSamples int, maxAge time.Duration) *Window {
	if maxSamples < 2 {
		maxSamples = 2
	}
	return &Window{maxSamples: maxSamples, maxAge: maxAge}
}

// Add appends s. Out-of-range coordinates and samples not strictly newer
// than the latest one are rejected and leave the window untouched.
func (w *Window) Add(s Sample) error {
	if !s.Position.Valid() {
		return ErrInvalidCoordinate
	}
	if n := len(w.samples); n > 0 && s.TimestampMs <= w.samples[n-1].TimestampMs {
		return ErrOutOfOrder
	}
	w.samples = append(w.samples, s)
	w.evict()
	return nil
}

func (w *Window) evict() {
	drop := 0
	if over := len(w.samples) - w.maxSamples; over > 0 {
		drop = over
	}
	if w.maxAge > 0 {
		cutoff := w.samples[len(w.samples)-1].TimestampMs - w.maxAge.Milliseconds()
		for drop < len(w.samples)-1 && w.samples[drop].TimestampMs < cutoff {
			drop++
		}
	}
	if drop > 0 {
		w.samples = append(w.samples[:0:0], w.samples[drop:]...)
	}
}

func (w *Window) Len() int { return len(w.samples) }

// Latest returns the newest sample.
func (w *Window) Latest() (Sample, bool) {
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

// Samples returns a copy of the window contents, oldest first.
func (w *Window) Samples() []Sample {
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}
