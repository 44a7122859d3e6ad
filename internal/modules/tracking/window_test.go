package tracking

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

func sampleAt(lat, lng float64, ts int64) Sample {
	return Sample{Position: types.Point{Lat: lat, Lng: lng}, TimestampMs: ts}
}

func TestWindow_RejectsInvalidCoordinates(t *testing.T) {
	w := NewWindow(10, time.Hour)
	bad := []types.Point{
		{Lat: 91, Lng: 0},
		{Lat: -90.5, Lng: 0},
		{Lat: 0, Lng: 180.1},
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for i, p := range bad {
		if err := w.Add(Sample{Position: p, TimestampMs: int64(i + 1)}); !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("Add(%+v) err = %v, want ErrInvalidCoordinate", p, err)
		}
	}
	if w.Len() != 0 {
		t.Fatalf("window len = %d, want 0", w.Len())
	}
}

func TestWindow_DropsOutOfOrderAndDuplicates(t *testing.T) {
	w := NewWindow(10, time.Hour)
	if err := w.Add(sampleAt(1, 1, 1000)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := w.Add(sampleAt(1, 1, 1000)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("duplicate timestamp err = %v", err)
	}
	if err := w.Add(sampleAt(1, 1, 999)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("older timestamp err = %v", err)
	}
	if err := w.Add(sampleAt(1, 1, 1001)); err != nil {
		t.Errorf("newer sample: %v", err)
	}
	if w.Len() != 2 {
		t.Fatalf("len = %d, want 2", w.Len())
	}
}

func TestWindow_EvictsBeyondCount(t *testing.T) {
	w := NewWindow(3, 0)
	for i := int64(1); i <= 5; i++ {
		if err := w.Add(sampleAt(0, 0, i*1000)); err != nil {
			t.Fatal(err)
		}
	}
	got := w.Samples()
	if len(got) != 3 || got[0].TimestampMs != 3000 || got[2].TimestampMs != 5000 {
		t.Fatalf("samples = %+v", got)
	}
}

func TestWindow_EvictsBeyondAge(t *testing.T) {
	w := NewWindow(100, time.Minute)
	for _, ts := range []int64{0, 30_000, 59_000, 90_000, 120_000} {
		if err := w.Add(sampleAt(0, 0, ts)); err != nil {
			t.Fatal(err)
		}
	}
	got := w.Samples()
	if got[0].TimestampMs != 90_000 {
		t.Fatalf("oldest = %d, want 90000 (samples %+v)", got[0].TimestampMs, got)
	}
	latest, ok := w.Latest()
	if !ok || latest.TimestampMs != 120_000 {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestWindow_KeepsLatestEvenWhenStale(t *testing.T) {
	w := NewWindow(5, time.Second)
	_ = w.Add(sampleAt(0, 0, 0))
	_ = w.Add(sampleAt(0, 0, 60_000))
	if w.Len() != 1 {
		t.Fatalf("len = %d, want 1", w.Len())
	}
}
