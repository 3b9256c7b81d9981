package probe

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

// MeasurementServer is one endpoint capable of serving bandwidth
// measurements: a download object at BaseURL+DownloadPath and an upload
// sink at BaseURL+UploadPath.
type MeasurementServer struct {
	Host     string
	Location string
	BaseURL  string
}

// ThroughputConfig controls the throughput probe.
type ThroughputConfig struct {
	// Servers are the candidate measurement servers; the probe selects
	// the nearest one by echo round trip time.
	Servers []MeasurementServer

	// DownloadPath and UploadPath are resolved against the selected
	// server's BaseURL.
	DownloadPath string
	UploadPath   string

	// UploadBytes is the upload payload size.
	UploadBytes int64

	// Timeout bounds each transfer; PingTimeout bounds server selection
	// echoes.
	Timeout     time.Duration
	PingTimeout time.Duration
}

// DefaultThroughputConfig returns the reference transfer settings. The
// server list is deployment-specific and comes from configuration.
func DefaultThroughputConfig(servers []MeasurementServer) ThroughputConfig {
	return ThroughputConfig{
		Servers:      servers,
		DownloadPath: "/fixed/10mb.bin",
		UploadPath:   "/upload",
		UploadBytes:  2 << 20,
		Timeout:      30 * time.Second,
		PingTimeout:  2 * time.Second,
	}
}

// ThroughputProber measures download and upload bandwidth against the
// nearest measurement server. The target argument to Run is ignored; the
// probe runs once per test.
type ThroughputProber struct {
	client *http.Client
	pinger Pinger
	cfg    ThroughputConfig
	log    *logrus.Logger
}

// NewThroughputProber builds a throughput prober. A nil client gets a
// fresh-connection transport so cached connections never skew the
// measurement.
func NewThroughputProber(client *http.Client, pinger Pinger, cfg ThroughputConfig, log *logrus.Logger) *ThroughputProber {
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DisableKeepAlives:  true,
				DisableCompression: true,
			},
		}
	}
	return &ThroughputProber{client: client, pinger: pinger, cfg: cfg, log: log}
}

func (p *ThroughputProber) Category() models.Category {
	return models.CategoryThroughput
}

func (p *ThroughputProber) Run(ctx context.Context, _ string) (models.ProbePayload, error) {
	server, pingMs, err := p.selectServer(ctx)
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"server":  server.Host,
		"ping_ms": pingMs,
	}).Info("Selected measurement server")

	downloadMbps, err := p.measureDownload(ctx, server)
	if err != nil {
		return nil, FailureFrom(err)
	}

	uploadMbps, err := p.measureUpload(ctx, server)
	if err != nil {
		return nil, FailureFrom(err)
	}

	stats := &models.ThroughputStats{
		DownloadMbps:   models.Round2(downloadMbps),
		UploadMbps:     models.Round2(uploadMbps),
		PingMs:         models.Round2(pingMs),
		ServerHost:     server.Host,
		ServerLocation: server.Location,
	}

	p.log.WithFields(logrus.Fields{
		"download_mbps": stats.DownloadMbps,
		"upload_mbps":   stats.UploadMbps,
		"server":        server.Host,
	}).Info("Throughput probe completed")

	return stats, nil
}

// selectServer picks the candidate with the lowest echo round trip time.
func (p *ThroughputProber) selectServer(ctx context.Context) (MeasurementServer, float64, error) {
	if len(p.cfg.Servers) == 0 {
		return MeasurementServer{}, 0, NewFailure(models.ErrorKindConfiguration,
			"no measurement servers configured")
	}

	var best MeasurementServer
	bestMs := -1.0

	for _, server := range p.cfg.Servers {
		rtt, ok, err := p.pinger.Ping(ctx, server.Host, p.cfg.PingTimeout)
		if err != nil || !ok {
			p.log.WithField("server", server.Host).Warn("Measurement server unreachable")
			continue
		}
		ms := durationMs(rtt)
		if bestMs < 0 || ms < bestMs {
			best = server
			bestMs = ms
		}
	}

	if bestMs < 0 {
		return MeasurementServer{}, 0, NewFailure(models.ErrorKindUnreachable,
			"no measurement server reachable out of %d candidates", len(p.cfg.Servers))
	}
	return best, bestMs, nil
}

func (p *ThroughputProber) measureDownload(ctx context.Context, server MeasurementServer) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.BaseURL+p.cfg.DownloadPath, nil)
	if err != nil {
		return 0, err
	}
	// Cache-busting so the transfer always crosses the network.
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// An error page is not a measurement.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, NewFailure(models.ErrorKindConfiguration,
			"measurement server %s returned HTTP %d for download", server.Host, resp.StatusCode)
	}

	bytesRead, err := io.Copy(io.Discard, resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return 0, err
	}

	return mbps(bytesRead, elapsed), nil
}

func (p *ThroughputProber) measureUpload(ctx context.Context, server MeasurementServer) (float64, error) {
	payload := make([]byte, p.cfg.UploadBytes)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.BaseURL+p.cfg.UploadPath, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, NewFailure(models.ErrorKindConfiguration,
			"measurement server %s returned HTTP %d for upload", server.Host, resp.StatusCode)
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)

	return mbps(p.cfg.UploadBytes, elapsed), nil
}

// mbps converts a transfer to megabits per second: bytes/s * 8 / 1e6.
func mbps(byteCount int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(byteCount) * 8 / elapsed.Seconds() / 1_000_000
}
