package probe

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

// JitterConfig controls the jitter probe.
type JitterConfig struct {
	// MeasurementCount is the number of consecutive echoes.
	MeasurementCount int

	// Timeout bounds each individual echo request.
	Timeout time.Duration

	// Interval is the pause between consecutive echoes; kept small so
	// the samples reflect short-term variation.
	Interval time.Duration
}

// DefaultJitterConfig matches the reference behavior: twenty echoes with
// a two second timeout and a 50ms gap.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MeasurementCount: 20,
		Timeout:          2 * time.Second,
		Interval:         50 * time.Millisecond,
	}
}

// JitterProber measures latency variation to one host. Jitter sample i is
// |latency[i] - latency[i-1]| over consecutive successful echoes, so at
// least two successful measurements are required.
type JitterProber struct {
	pinger Pinger
	cfg    JitterConfig
	log    *logrus.Logger
}

func NewJitterProber(pinger Pinger, cfg JitterConfig, log *logrus.Logger) *JitterProber {
	return &JitterProber{pinger: pinger, cfg: cfg, log: log}
}

func (p *JitterProber) Category() models.Category {
	return models.CategoryJitter
}

func (p *JitterProber) Run(ctx context.Context, host string) (models.ProbePayload, error) {
	p.log.WithFields(logrus.Fields{
		"host":         host,
		"measurements": p.cfg.MeasurementCount,
	}).Info("Starting jitter probe")

	latencies := make([]float64, 0, p.cfg.MeasurementCount)

	for i := 0; i < p.cfg.MeasurementCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, FailureFrom(err)
		}

		rtt, ok, err := p.pinger.Ping(ctx, host, p.cfg.Timeout)
		if err != nil {
			return nil, FailureFrom(err)
		}
		if ok {
			latencies = append(latencies, durationMs(rtt))
		}

		if i < p.cfg.MeasurementCount-1 {
			sleepInterval(ctx, p.cfg.Interval)
		}
	}

	if len(latencies) < 2 {
		return nil, NewFailure(models.ErrorKindInsufficientData,
			"insufficient measurements for jitter: %d successful echoes from %s, need at least 2",
			len(latencies), host)
	}

	jitter := make([]float64, 0, len(latencies)-1)
	for i := 1; i < len(latencies); i++ {
		jitter = append(jitter, math.Abs(latencies[i]-latencies[i-1]))
	}

	min, max := models.MinMax(jitter)
	stats := &models.JitterStats{
		Host:                   host,
		AvgJitterMs:            models.Round2(models.Mean(jitter)),
		MaxJitterMs:            models.Round2(max),
		MinJitterMs:            models.Round2(min),
		Measurements:           models.Round2Slice(latencies),
		JitterValues:           models.Round2Slice(jitter),
		SuccessfulMeasurements: len(latencies),
		TotalMeasurements:      p.cfg.MeasurementCount,
	}

	p.log.WithFields(logrus.Fields{
		"host":          host,
		"avg_jitter_ms": stats.AvgJitterMs,
		"max_jitter_ms": stats.MaxJitterMs,
	}).Info("Jitter probe completed")

	return stats, nil
}
