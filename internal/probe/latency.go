package probe

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

// LatencyConfig controls the latency probe.
type LatencyConfig struct {
	// PacketCount is the number of echo requests per host.
	PacketCount int

	// Timeout bounds each individual echo request.
	Timeout time.Duration

	// Interval is the pause between consecutive echoes.
	Interval time.Duration
}

// DefaultLatencyConfig matches the reference behavior: ten echoes with a
// two second timeout and a 100ms gap.
func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{
		PacketCount: 10,
		Timeout:     2 * time.Second,
		Interval:    100 * time.Millisecond,
	}
}

// LatencyProber measures round trip latency to one host using sequential
// echo requests. Echoes with no response are excluded from the
// statistics; only a run with zero responses fails.
type LatencyProber struct {
	pinger Pinger
	cfg    LatencyConfig
	log    *logrus.Logger
}

func NewLatencyProber(pinger Pinger, cfg LatencyConfig, log *logrus.Logger) *LatencyProber {
	return &LatencyProber{pinger: pinger, cfg: cfg, log: log}
}

func (p *LatencyProber) Category() models.Category {
	return models.CategoryLatency
}

func (p *LatencyProber) Run(ctx context.Context, host string) (models.ProbePayload, error) {
	p.log.WithFields(logrus.Fields{
		"host":    host,
		"packets": p.cfg.PacketCount,
	}).Info("Starting latency probe")

	latencies := make([]float64, 0, p.cfg.PacketCount)
	sent, received := 0, 0

	for i := 0; i < p.cfg.PacketCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, FailureFrom(err)
		}
		sent++

		rtt, ok, err := p.pinger.Ping(ctx, host, p.cfg.Timeout)
		if err != nil {
			return nil, FailureFrom(err)
		}
		if ok {
			received++
			latencies = append(latencies, durationMs(rtt))
		} else {
			p.log.WithFields(logrus.Fields{
				"host": host,
				"seq":  i + 1,
			}).Warn("Echo request got no response")
		}

		if i < p.cfg.PacketCount-1 {
			sleepInterval(ctx, p.cfg.Interval)
		}
	}

	if len(latencies) == 0 {
		return nil, NewFailure(models.ErrorKindTimeout,
			"no echo replies from %s after %d requests", host, sent)
	}

	min, max := models.MinMax(latencies)
	stats := &models.LatencyStats{
		Host:            host,
		PacketsSent:     sent,
		PacketsReceived: received,
		MinMs:           models.Round2(min),
		MaxMs:           models.Round2(max),
		AvgMs:           models.Round2(models.Mean(latencies)),
		StddevMs:        models.Round2(models.SampleStdDev(latencies)),
	}

	p.log.WithFields(logrus.Fields{
		"host":     host,
		"received": received,
		"sent":     sent,
		"avg_ms":   stats.AvgMs,
	}).Info("Latency probe completed")

	return stats, nil
}

// sleepInterval pauses between echoes without outliving the context.
func sleepInterval(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
