package timemath_test

import (
	"slices"
	"testing"
	"time"

	"example.com/tinyntp/base/timemath"
)

func TestAbs(t *testing.T) {
	tests := []struct {
		d, want time.Duration
	}{
		{time.Second, time.Second},
		{-time.Second, time.Second},
		{0, 0},
	}
	for _, tt := range tests {
		if got := timemath.Abs(tt.d); got != tt.want {
			t.Errorf("Abs(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestMidpoint(t *testing.T) {
	tests := []struct {
		x, y, want time.Duration
	}{
		{0, 10 * time.Millisecond, 5 * time.Millisecond},
		{-10 * time.Millisecond, 10 * time.Millisecond, 0},
		{3, 3, 3},
	}
	for _, tt := range tests {
		if got := timemath.Midpoint(tt.x, tt.y); got != tt.want {
			t.Errorf("Midpoint(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		ds   []time.Duration
		want time.Duration
	}{
		{[]time.Duration{5}, 5},
		{[]time.Duration{3, 1, 2}, 2},
		{[]time.Duration{4, 1, 3, 2}, 2},
		{[]time.Duration{-10, 10}, 0},
	}
	for _, tt := range tests {
		in := slices.Clone(tt.ds)
		if got := timemath.Median(tt.ds); got != tt.want {
			t.Errorf("Median(%v) = %v, want %v", in, got, tt.want)
		}
		if !slices.Equal(in, tt.ds) {
			t.Errorf("Median reordered its input: %v", tt.ds)
		}
	}
}

func TestFaultTolerantMidpoint(t *testing.T) {
	tests := []struct {
		ds   []time.Duration
		want time.Duration
	}{
		{[]time.Duration{7}, 7},
		{[]time.Duration{1, 3}, 2},
		// one falseticker out of four is discarded
		{[]time.Duration{10, 12, 14, 1000}, 13},
		{[]time.Duration{-1000, 10, 12, 14}, 11},
	}
	for _, tt := range tests {
		if got := timemath.FaultTolerantMidpoint(tt.ds); got != tt.want {
			t.Errorf("FaultTolerantMidpoint(%v) = %v, want %v", tt.ds, got, tt.want)
		}
	}
}

func TestEmptyPanics(t *testing.T) {
	for name, f := range map[string]func([]time.Duration) time.Duration{
		"Median":                timemath.Median,
		"FaultTolerantMidpoint": timemath.FaultTolerantMidpoint,
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s(nil) did not panic", name)
				}
			}()
			f(nil)
		}()
	}
}

func TestSpread(t *testing.T) {
	if got := timemath.Spread(nil); got != 0 {
		t.Errorf("Spread(nil) = %v, want 0", got)
	}
	if got := timemath.Spread([]time.Duration{3, -2, 7}); got != 9 {
		t.Errorf("Spread = %v, want 9", got)
	}
}
