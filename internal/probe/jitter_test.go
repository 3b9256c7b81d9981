package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/network-diagnostics-platform/internal/models"
)

func jitterTestConfig(count int) JitterConfig {
	return JitterConfig{MeasurementCount: count, Timeout: time.Second, Interval: 0}
}

func TestJitterProberComputesDeltas(t *testing.T) {
	pinger := &fakePinger{
		rtts: []time.Duration{ms(10), ms(15), ms(5), ms(25)},
		oks:  []bool{true, true, true, true},
	}
	prober := NewJitterProber(pinger, jitterTestConfig(4), testLogger())

	payload, err := prober.Run(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats, ok := payload.(*models.JitterStats)
	if !ok {
		t.Fatalf("expected *models.JitterStats, got %T", payload)
	}

	// Latencies 10,15,5,25 give deltas |15-10|=5, |5-15|=10, |25-5|=20.
	want := []float64{5, 10, 20}
	if len(stats.JitterValues) != len(want) {
		t.Fatalf("jitter values = %v, want %v", stats.JitterValues, want)
	}
	for i, v := range want {
		if stats.JitterValues[i] != v {
			t.Errorf("jitter[%d] = %v, want %v", i, stats.JitterValues[i], v)
		}
	}
	if stats.MinJitterMs != 5 || stats.MaxJitterMs != 20 {
		t.Errorf("min/max jitter = %v/%v, want 5/20", stats.MinJitterMs, stats.MaxJitterMs)
	}
	if stats.AvgJitterMs != 11.67 {
		t.Errorf("avg jitter = %v, want 11.67", stats.AvgJitterMs)
	}
	if stats.SuccessfulMeasurements != 4 || stats.TotalMeasurements != 4 {
		t.Errorf("successful/total = %d/%d, want 4/4",
			stats.SuccessfulMeasurements, stats.TotalMeasurements)
	}
}

func TestJitterProberSkipsLostEchoes(t *testing.T) {
	pinger := &fakePinger{
		rtts: []time.Duration{ms(10), 0, ms(20)},
		oks:  []bool{true, false, true},
	}
	prober := NewJitterProber(pinger, jitterTestConfig(3), testLogger())

	payload, err := prober.Run(context.Background(), "1.1.1.1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := payload.(*models.JitterStats)
	// The lost echo drops out, so the only delta is |20-10|.
	if len(stats.JitterValues) != 1 || stats.JitterValues[0] != 10 {
		t.Errorf("jitter values = %v, want [10]", stats.JitterValues)
	}
	if stats.SuccessfulMeasurements != 2 {
		t.Errorf("successful = %d, want 2", stats.SuccessfulMeasurements)
	}
}

func TestJitterProberInsufficientSamples(t *testing.T) {
	tests := []struct {
		name string
		oks  []bool
	}{
		{"no successes", []bool{false, false, false}},
		{"one success", []bool{true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := &fakePinger{rtts: []time.Duration{ms(10), ms(10), ms(10)}, oks: tt.oks}
			prober := NewJitterProber(pinger, jitterTestConfig(len(tt.oks)), testLogger())

			_, err := prober.Run(context.Background(), "192.0.2.1")
			if err == nil {
				t.Fatal("expected error with fewer than two successful echoes")
			}
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *Failure, got %T", err)
			}
			if failure.Kind != models.ErrorKindInsufficientData {
				t.Errorf("kind = %q, want %q", failure.Kind, models.ErrorKindInsufficientData)
			}
		})
	}
}
