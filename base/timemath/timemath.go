package timemath

import (
	"slices"
	"time"
)

func Abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func Midpoint(x, y time.Duration) time.Duration {
	return x + (y-x)/2
}

// Median returns the median of ds without reordering ds.
func Median(ds []time.Duration) time.Duration {
	n := len(ds)
	if n == 0 {
		panic("unexpected number of values")
	}
	s := slices.Clone(ds)
	slices.Sort(s)
	i := n / 2
	if n%2 != 0 {
		return s[i]
	}
	return Midpoint(s[i-1], s[i])
}

// FaultTolerantMidpoint discards the f = (n-1)/3 smallest and largest
// samples and returns the midpoint of the remaining extremes. Up to f
// falsetickers cannot move the result outside the range of the others.
func FaultTolerantMidpoint(ds []time.Duration) time.Duration {
	n := len(ds)
	if n == 0 {
		panic("unexpected number of values")
	}
	s := slices.Clone(ds)
	slices.Sort(s)
	f := (n - 1) / 3
	return Midpoint(s[f], s[n-1-f])
}

// Spread is the distance between the smallest and the largest sample.
func Spread(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	return slices.Max(ds) - slices.Min(ds)
}
