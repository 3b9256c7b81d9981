package models

import (
	"math"
	"testing"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.234, 1.23},
		{1.235, 1.24},
		{0, 0},
		{-2.678, -2.68},
		{100, 100},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSampleStdDev(t *testing.T) {
	// Sample (n-1) standard deviation of 2,4,4,4,5,5,7,9 is ~2.1381.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := SampleStdDev(values)
	if math.Abs(got-2.1381) > 0.001 {
		t.Errorf("SampleStdDev = %v, want ~2.1381", got)
	}

	if got := SampleStdDev([]float64{5}); got != 0 {
		t.Errorf("SampleStdDev of one value = %v, want 0", got)
	}
	if got := SampleStdDev(nil); got != 0 {
		t.Errorf("SampleStdDev of nil = %v, want 0", got)
	}
}

func TestMinMax(t *testing.T) {
	min, max := MinMax([]float64{3, 1, 4, 1, 5})
	if min != 1 || max != 5 {
		t.Errorf("MinMax = %v/%v, want 1/5", min, max)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Mean = %v, want 2.5", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean of nil = %v, want 0", got)
	}
}
