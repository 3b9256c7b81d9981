package orchestrator

import (
	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/probe"
)

// ProbeSettings carries the deployment-level probe configuration that does
// not vary per request.
type ProbeSettings struct {
	Latency    probe.LatencyConfig
	Jitter     probe.JitterConfig
	PacketLoss probe.PacketLossConfig
	Throughput probe.ThroughputConfig
	Resolution probe.ResolutionConfig

	// EchoPort is the TCP port used for echo round trips ("" means 443).
	EchoPort string
}

// DefaultProbeSettings returns the reference probe configuration with the
// given measurement servers.
func DefaultProbeSettings(servers []probe.MeasurementServer) ProbeSettings {
	return ProbeSettings{
		Latency:    probe.DefaultLatencyConfig(),
		Jitter:     probe.DefaultJitterConfig(),
		PacketLoss: probe.DefaultPacketLossConfig(),
		Throughput: probe.DefaultThroughputConfig(servers),
		Resolution: probe.DefaultResolutionConfig(),
	}
}

// NewProbeFactory builds the production probe set. The request's packet
// count overrides the packet loss default; everything else comes from the
// settings.
func NewProbeFactory(settings ProbeSettings, log *logrus.Logger) ProbeFactory {
	return func(req models.TestRequest) map[models.Category]probe.Prober {
		pinger := probe.NewTCPPinger(settings.EchoPort)

		lossCfg := settings.PacketLoss
		if req.PacketCount > 0 {
			lossCfg.PacketCount = req.PacketCount
		}

		return map[models.Category]probe.Prober{
			models.CategoryLatency:    probe.NewLatencyProber(pinger, settings.Latency, log),
			models.CategoryJitter:     probe.NewJitterProber(pinger, settings.Jitter, log),
			models.CategoryPacketLoss: probe.NewPacketLossProber(pinger, lossCfg, log),
			models.CategoryThroughput: probe.NewThroughputProber(nil, pinger, settings.Throughput, log),
			models.CategoryDNS:        probe.NewResolutionProber(&probe.NetResolver{}, settings.Resolution, log),
		}
	}
}
