// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// ClipSlice clips each element of values in place
func ClipSlice(values []float64, min, max float64) {
	for i := range values {
		values[i] = Clip(values[i], min, max)
	}
}

// Rescale maps a value in [-1, 1] linearly onto the interval. Values
// outside [-1, 1] are clipped first.
func Rescale(value float64, interval r1.Interval) float64 {
	value = Clip(value, -1, 1)
	return interval.Min + (value+1.0)*(interval.Max-interval.Min)/2.0
}

// ArgMax returns the index of the largest value, preferring the
// lowest index on ties. It panics on an empty slice.
func ArgMax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// IsFinite returns whether all values are neither NaN nor infinite
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
