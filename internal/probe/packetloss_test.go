package probe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/network-diagnostics-platform/internal/models"
)

func lossTestConfig(packets int) PacketLossConfig {
	return PacketLossConfig{PacketCount: packets, Timeout: time.Second, Interval: 0}
}

func TestPacketLossProber(t *testing.T) {
	tests := []struct {
		name         string
		oks          []bool
		wantLossPct  float64
		wantSuccess  float64
		wantReceived int
	}{
		{
			name:         "no loss",
			oks:          []bool{true, true, true, true},
			wantLossPct:  0,
			wantSuccess:  100,
			wantReceived: 4,
		},
		{
			name:         "one in four lost",
			oks:          []bool{true, false, true, true},
			wantLossPct:  25,
			wantSuccess:  75,
			wantReceived: 3,
		},
		{
			name:         "total loss is still a successful probe",
			oks:          []bool{false, false, false, false},
			wantLossPct:  100,
			wantSuccess:  0,
			wantReceived: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := &fakePinger{
				rtts: []time.Duration{ms(10), ms(10), ms(10), ms(10)},
				oks:  tt.oks,
			}
			prober := NewPacketLossProber(pinger, lossTestConfig(len(tt.oks)), testLogger())

			payload, err := prober.Run(context.Background(), "8.8.8.8")
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			stats, ok := payload.(*models.PacketLossStats)
			if !ok {
				t.Fatalf("expected *models.PacketLossStats, got %T", payload)
			}
			if stats.PacketsSent != len(tt.oks) {
				t.Errorf("sent = %d, want %d", stats.PacketsSent, len(tt.oks))
			}
			if stats.PacketsReceived != tt.wantReceived {
				t.Errorf("received = %d, want %d", stats.PacketsReceived, tt.wantReceived)
			}
			if stats.PacketsLost != len(tt.oks)-tt.wantReceived {
				t.Errorf("lost = %d, want %d", stats.PacketsLost, len(tt.oks)-tt.wantReceived)
			}
			if stats.LossPercentage != tt.wantLossPct {
				t.Errorf("loss pct = %v, want %v", stats.LossPercentage, tt.wantLossPct)
			}
			if stats.SuccessRate != tt.wantSuccess {
				t.Errorf("success rate = %v, want %v", stats.SuccessRate, tt.wantSuccess)
			}
		})
	}
}

func TestPacketLossProberTransientErrorCountsAsLoss(t *testing.T) {
	pinger := &fakePinger{
		rtts: []time.Duration{ms(10), 0, ms(10)},
		oks:  []bool{true, false, true},
		errs: []error{nil, errors.New("read: connection reset"), nil},
	}
	prober := NewPacketLossProber(pinger, lossTestConfig(3), testLogger())

	payload, err := prober.Run(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := payload.(*models.PacketLossStats)
	if stats.PacketsLost != 1 {
		t.Errorf("lost = %d, want 1", stats.PacketsLost)
	}
}

func TestPacketLossProberPermissionAborts(t *testing.T) {
	pinger := &fakePinger{
		oks:  []bool{false},
		errs: []error{os.ErrPermission},
	}
	prober := NewPacketLossProber(pinger, lossTestConfig(100), testLogger())

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
	if pinger.calls != 1 {
		t.Errorf("pinger called %d times, want 1 (abort on first permission error)", pinger.calls)
	}
}
