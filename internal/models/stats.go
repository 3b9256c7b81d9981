package models

import (
	"math"
)

// Round2 rounds a millisecond or percentage value to two decimal places.
// Applied only at the payload boundary; intermediate computation keeps
// full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2Slice returns a copy of values rounded to two decimal places.
func Round2Slice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Round2(v)
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MinMax returns the smallest and largest values, or (0, 0) for an empty
// slice.
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// SampleStdDev returns the sample standard deviation (n-1 denominator),
// or 0 when fewer than two values are available.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
