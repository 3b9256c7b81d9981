package probe

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

// PacketLossConfig controls the packet loss probe.
type PacketLossConfig struct {
	// PacketCount is the number of echo requests to send.
	PacketCount int

	// Timeout bounds each individual echo request.
	Timeout time.Duration

	// Interval is the pause between echoes, kept short to avoid
	// stretching large packet counts over minutes.
	Interval time.Duration
}

// DefaultPacketLossConfig matches the reference behavior: one hundred
// echoes with a two second timeout and a 10ms gap.
func DefaultPacketLossConfig() PacketLossConfig {
	return PacketLossConfig{
		PacketCount: 100,
		Timeout:     2 * time.Second,
		Interval:    10 * time.Millisecond,
	}
}

// PacketLossProber measures the echo loss rate to one host. Zero loss is
// a normal successful outcome; only a transport-level failure such as
// missing privileges fails the probe.
type PacketLossProber struct {
	pinger Pinger
	cfg    PacketLossConfig
	log    *logrus.Logger
}

func NewPacketLossProber(pinger Pinger, cfg PacketLossConfig, log *logrus.Logger) *PacketLossProber {
	return &PacketLossProber{pinger: pinger, cfg: cfg, log: log}
}

func (p *PacketLossProber) Category() models.Category {
	return models.CategoryPacketLoss
}

func (p *PacketLossProber) Run(ctx context.Context, host string) (models.ProbePayload, error) {
	p.log.WithFields(logrus.Fields{
		"host":    host,
		"packets": p.cfg.PacketCount,
	}).Info("Starting packet loss probe")

	sent, received := 0, 0

	for i := 0; i < p.cfg.PacketCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, FailureFrom(err)
		}
		sent++

		_, ok, err := p.pinger.Ping(ctx, host, p.cfg.Timeout)
		if err != nil {
			// Permission errors make every subsequent echo pointless.
			if Classify(err) == models.ErrorKindPermission {
				return nil, FailureFrom(err)
			}
			// Other transport hiccups count as a lost packet.
			p.log.WithFields(logrus.Fields{
				"host":  host,
				"seq":   i + 1,
				"error": err.Error(),
			}).Debug("Echo request failed")
		} else if ok {
			received++
		}

		if i < p.cfg.PacketCount-1 {
			sleepInterval(ctx, p.cfg.Interval)
		}
	}

	lost := sent - received
	var lossPct, successPct float64
	if sent > 0 {
		lossPct = float64(lost) / float64(sent) * 100
		successPct = float64(received) / float64(sent) * 100
	}

	stats := &models.PacketLossStats{
		Host:            host,
		PacketsSent:     sent,
		PacketsReceived: received,
		PacketsLost:     lost,
		LossPercentage:  models.Round2(lossPct),
		SuccessRate:     models.Round2(successPct),
	}

	p.log.WithFields(logrus.Fields{
		"host":     host,
		"received": received,
		"sent":     sent,
		"loss_pct": stats.LossPercentage,
	}).Info("Packet loss probe completed")

	return stats, nil
}
