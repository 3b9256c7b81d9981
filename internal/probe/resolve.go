package probe

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

// Resolver performs one DNS lookup through a specific server and reports
// how long it took.
type Resolver interface {
	Resolve(ctx context.Context, server, domain string) (time.Duration, error)
}

// NetResolver resolves via the Go resolver, dialed directly at the
// requested server so the system resolver configuration never interferes
// with the measurement.
type NetResolver struct {
	// Port for DNS queries; defaults to 53.
	Port string
}

func (r *NetResolver) Resolve(ctx context.Context, server, domain string) (time.Duration, error) {
	port := r.Port
	if port == "" {
		port = "53"
	}
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := &net.Dialer{}
			return d.DialContext(ctx, network, net.JoinHostPort(server, port))
		},
	}

	start := time.Now()
	_, err := resolver.LookupHost(ctx, domain)
	elapsed := time.Since(start)
	if err != nil {
		return 0, err
	}
	return elapsed, nil
}

// ResolutionConfig controls the DNS resolution probe.
type ResolutionConfig struct {
	// Domains are the names queried against each server.
	Domains []string

	// Timeout bounds each individual query.
	Timeout time.Duration
}

// DefaultResolutionConfig queries a fixed set of well-known domains so
// results are comparable across servers and runs.
func DefaultResolutionConfig() ResolutionConfig {
	return ResolutionConfig{
		Domains: []string{
			"google.com",
			"cloudflare.com",
			"amazon.com",
			"microsoft.com",
			"github.com",
		},
		Timeout: 5 * time.Second,
	}
}

// ResolutionProber times DNS queries against one server. The target
// argument to Run is the DNS server address. Individual query failures
// are recorded in the statistics; the probe itself only fails on
// transport-level errors such as a cancelled context.
type ResolutionProber struct {
	resolver Resolver
	cfg      ResolutionConfig
	log      *logrus.Logger
}

func NewResolutionProber(resolver Resolver, cfg ResolutionConfig, log *logrus.Logger) *ResolutionProber {
	return &ResolutionProber{resolver: resolver, cfg: cfg, log: log}
}

func (p *ResolutionProber) Category() models.Category {
	return models.CategoryDNS
}

func (p *ResolutionProber) Run(ctx context.Context, server string) (models.ProbePayload, error) {
	p.log.WithFields(logrus.Fields{
		"dns_server": server,
		"domains":    len(p.cfg.Domains),
	}).Info("Starting DNS resolution probe")

	times := make([]float64, 0, len(p.cfg.Domains))
	failed := 0

	for _, domain := range p.cfg.Domains {
		if err := ctx.Err(); err != nil {
			return nil, FailureFrom(err)
		}

		queryCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		elapsed, err := p.resolver.Resolve(queryCtx, server, domain)
		cancel()
		if err != nil {
			failed++
			p.log.WithFields(logrus.Fields{
				"dns_server": server,
				"domain":     domain,
				"error":      err.Error(),
			}).Debug("DNS query failed")
			continue
		}
		times = append(times, durationMs(elapsed))
	}

	stats := &models.ResolutionStats{
		DNSServer:         server,
		QueriesTested:     len(p.cfg.Domains),
		SuccessfulQueries: len(times),
		FailedQueries:     failed,
		ResolutionTimes:   models.Round2Slice(times),
	}
	if len(p.cfg.Domains) > 0 {
		stats.SuccessRate = models.Round2(float64(len(times)) / float64(len(p.cfg.Domains)) * 100)
	}

	if len(times) == 0 {
		// The server answered nothing, but the probe itself ran to
		// completion; the caller decides how severe this is.
		stats.Error = "All DNS queries failed"
		p.log.WithField("dns_server", server).Warn("All DNS queries failed")
		return stats, nil
	}

	min, max := models.MinMax(times)
	stats.AvgResolutionMs = models.Round2(models.Mean(times))
	stats.MinResolutionMs = models.Round2(min)
	stats.MaxResolutionMs = models.Round2(max)
	stats.StddevResolutionMs = models.Round2(models.SampleStdDev(times))

	p.log.WithFields(logrus.Fields{
		"dns_server": server,
		"avg_ms":     stats.AvgResolutionMs,
		"successful": stats.SuccessfulQueries,
	}).Info("DNS resolution probe completed")

	return stats, nil
}
