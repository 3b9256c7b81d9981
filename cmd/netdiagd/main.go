// netdiagd is the diagnostics daemon: it serves the HTTP API, runs tests
// through the orchestration engine and persists results in PostgreSQL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/config"
	"github.com/network-diagnostics-platform/internal/database"
	"github.com/network-diagnostics-platform/internal/orchestrator"
	"github.com/network-diagnostics-platform/internal/probe"
	"github.com/network-diagnostics-platform/internal/queue"
	"github.com/network-diagnostics-platform/internal/recommend"
	"github.com/network-diagnostics-platform/internal/retry"
	"github.com/network-diagnostics-platform/internal/server"
	"github.com/network-diagnostics-platform/internal/service"
	"github.com/network-diagnostics-platform/internal/tracing"
	"github.com/network-diagnostics-platform/internal/validation"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	shutdownTracer, err := tracing.InitTracer(&tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    os.Getenv("ENVIRONMENT"),
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdownTracer(context.Background())

	conn, err := database.NewConnection(&database.ConnectionConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close()

	migrator := database.NewMigrationManager(conn)
	if err := migrator.Up(context.Background(), database.Migrations()); err != nil {
		log.WithError(err).Fatal("Failed to apply migrations")
	}

	repo := database.NewTestRepository(conn)

	var publisher service.Publisher
	if cfg.NATS.Enabled {
		natsCfg := queue.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		p, err := queue.NewPublisher(natsCfg, log)
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, completion events disabled")
		} else {
			defer p.Close()
			publisher = p
		}
	}

	settings := probeSettings(cfg.Probes)
	engine := orchestrator.NewEngine(
		orchestrator.NewProbeFactory(settings, log),
		retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			Multiplier: 2,
			MaxDelay:   cfg.Retry.MaxDelay,
		},
		log,
	)

	synth := recommend.NewLLMSynthesizer(
		recommend.NewMockLLMProvider(),
		recommend.NewRuleSynthesizer(recommend.DefaultThresholds(), log),
		log,
	)

	svc := service.NewTestService(
		repo,
		engine,
		validation.NewValidator(log),
		synth,
		publisher,
		service.DefaultConfig(),
		log,
	)

	api := server.NewAPI(svc, server.APIConfig{AllowedOrigins: cfg.HTTP.AllowedOrigins}, log)
	srv := server.NewServer(fmt.Sprintf(":%d", cfg.HTTP.Port), api.Handler(), nil, log)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down")
		if err := srv.Shutdown(cfg.HTTP.ShutdownTimeout); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		log.WithError(err).Fatal("Server error")
	}
}

func probeSettings(cfg config.ProbeConfig) orchestrator.ProbeSettings {
	settings := orchestrator.DefaultProbeSettings(parseServers(cfg.MeasurementServers))
	settings.EchoPort = cfg.EchoPort
	settings.Latency.PacketCount = cfg.LatencyPackets
	settings.Latency.Timeout = cfg.EchoTimeout
	settings.Jitter.MeasurementCount = cfg.JitterSamples
	settings.Jitter.Timeout = cfg.EchoTimeout
	settings.PacketLoss.Timeout = cfg.EchoTimeout
	settings.Throughput.Timeout = cfg.ThroughputTimeout
	settings.Resolution.Timeout = cfg.DNSTimeout
	return settings
}

// parseServers parses "host|location|base-url" triples separated by
// commas.
func parseServers(raw string) []probe.MeasurementServer {
	var servers []probe.MeasurementServer
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), "|")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			continue
		}
		servers = append(servers, probe.MeasurementServer{
			Host:     parts[0],
			Location: parts[1],
			BaseURL:  parts[2],
		})
	}
	return servers
}
