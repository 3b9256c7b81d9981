package probe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/network-diagnostics-platform/internal/models"
)

func latencyTestConfig(packets int) LatencyConfig {
	return LatencyConfig{PacketCount: packets, Timeout: time.Second, Interval: 0}
}

func TestLatencyProberStatistics(t *testing.T) {
	pinger := &fakePinger{
		rtts: []time.Duration{ms(10), ms(20), ms(30), ms(40)},
		oks:  []bool{true, true, true, true},
	}
	prober := NewLatencyProber(pinger, latencyTestConfig(4), testLogger())

	payload, err := prober.Run(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats, ok := payload.(*models.LatencyStats)
	if !ok {
		t.Fatalf("expected *models.LatencyStats, got %T", payload)
	}
	if stats.Host != "8.8.8.8" {
		t.Errorf("host = %q, want 8.8.8.8", stats.Host)
	}
	if stats.PacketsSent != 4 || stats.PacketsReceived != 4 {
		t.Errorf("sent/received = %d/%d, want 4/4", stats.PacketsSent, stats.PacketsReceived)
	}
	if stats.MinMs != 10 || stats.MaxMs != 40 {
		t.Errorf("min/max = %v/%v, want 10/40", stats.MinMs, stats.MaxMs)
	}
	if stats.AvgMs != 25 {
		t.Errorf("avg = %v, want 25", stats.AvgMs)
	}
	// Sample standard deviation of 10,20,30,40 is sqrt(500/3) = 12.9099...
	if stats.StddevMs != 12.91 {
		t.Errorf("stddev = %v, want 12.91", stats.StddevMs)
	}
}

func TestLatencyProberExcludesLostEchoes(t *testing.T) {
	pinger := &fakePinger{
		rtts: []time.Duration{ms(10), 0, ms(30)},
		oks:  []bool{true, false, true},
	}
	prober := NewLatencyProber(pinger, latencyTestConfig(3), testLogger())

	payload, err := prober.Run(context.Background(), "1.1.1.1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := payload.(*models.LatencyStats)
	if stats.PacketsSent != 3 {
		t.Errorf("sent = %d, want 3", stats.PacketsSent)
	}
	if stats.PacketsReceived != 2 {
		t.Errorf("received = %d, want 2", stats.PacketsReceived)
	}
	if stats.AvgMs != 20 {
		t.Errorf("avg = %v, want 20 (lost echo must not contribute a zero)", stats.AvgMs)
	}
}

func TestLatencyProberAllLost(t *testing.T) {
	pinger := &fakePinger{oks: []bool{false, false, false}}
	prober := NewLatencyProber(pinger, latencyTestConfig(3), testLogger())

	_, err := prober.Run(context.Background(), "192.0.2.1")
	if err == nil {
		t.Fatal("expected error when no echoes are answered")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %T", err)
	}
	if failure.Kind != models.ErrorKindTimeout {
		t.Errorf("kind = %q, want %q", failure.Kind, models.ErrorKindTimeout)
	}
}

func TestLatencyProberPermissionError(t *testing.T) {
	pinger := &fakePinger{
		oks:  []bool{false},
		errs: []error{os.ErrPermission},
	}
	prober := NewLatencyProber(pinger, latencyTestConfig(5), testLogger())

	_, err := prober.Run(context.Background(), "8.8.8.8")
	if err == nil {
		t.Fatal("expected error")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %T", err)
	}
	if failure.Kind != models.ErrorKindPermission {
		t.Errorf("kind = %q, want %q", failure.Kind, models.ErrorKindPermission)
	}
}

func TestLatencyProberCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewLatencyProber(&steadyPinger{rtt: ms(5)}, latencyTestConfig(10), testLogger())
	_, err := prober.Run(ctx, "8.8.8.8")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
