package worker

import (
	"testing"
	"time"
)

func TestBackoff_GrowsExponentially(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2.0}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
	}

	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2.0}

	if got := b.Delay(100); got != 30*time.Second {
		t.Errorf("expected delay capped at 30s, got %s", got)
	}
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	b := DefaultBackoff()

	for i := 0; i < 100; i++ {
		d := b.Delay(3) // base 4s, jitter ±20%
		if d < time.Duration(float64(4*time.Second)*0.8) || d > time.Duration(float64(4*time.Second)*1.2) {
			t.Fatalf("jittered delay out of bounds: %s", d)
		}
	}
}

func TestBackoff_ZeroValueUsesDefaults(t *testing.T) {
	var b Backoff

	if got := b.Delay(1); got != time.Second {
		t.Errorf("expected default initial 1s, got %s", got)
	}
	if got := b.Delay(100); got != 30*time.Second {
		t.Errorf("expected default cap 30s, got %s", got)
	}
}
