// Package queue publishes finished test results to NATS JetStream so
// downstream consumers (alerting, long-term analytics) can react without
// polling the database.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

const (
	StreamNameTests = "diagnostics-tests"

	SubjectTestCompleted = "diagnostics.tests.completed"

	DefaultStreamRetention = 7 * 24 * time.Hour
)

// NATSConfig holds configuration for the JetStream connection.
type NATSConfig struct {
	URL             string
	StreamRetention time.Duration
	ReconnectWait   time.Duration
	MaxReconnects   int
}

// DefaultNATSConfig returns a NATSConfig with sensible defaults
func DefaultNATSConfig() *NATSConfig {
	return &NATSConfig{
		URL:             nats.DefaultURL,
		StreamRetention: DefaultStreamRetention,
		ReconnectWait:   2 * time.Second,
		MaxReconnects:   -1, // unlimited
	}
}

// TestEvent is the message published for every finished test run.
type TestEvent struct {
	TestID    string            `json:"test_id"`
	Status    models.TestStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher publishes test completion events to JetStream.
type Publisher struct {
	config *NATSConfig
	nc     *nats.Conn
	js     jetstream.JetStream
	log    *logrus.Logger
}

// NewPublisher connects to NATS and ensures the tests stream exists.
func NewPublisher(config *NATSConfig, log *logrus.Logger) (*Publisher, error) {
	if config == nil {
		config = DefaultNATSConfig()
	}

	p := &Publisher{config: config, log: log}

	opts := []nats.Option{
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
			natsReconnectsTotal.Inc()
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}
	p.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	p.js = js

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.createStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return p, nil
}

func (p *Publisher) createStream(ctx context.Context) error {
	stream := jetstream.StreamConfig{
		Name:        StreamNameTests,
		Subjects:    []string{SubjectTestCompleted},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.StreamRetention,
		Replicas:    1,
		Discard:     jetstream.DiscardOld,
		Description: "Completed diagnostic test events",
	}

	if _, err := p.js.CreateOrUpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to create tests stream: %w", err)
	}
	return nil
}

// PublishTestCompleted announces a finished run. Publication is
// best-effort from the caller's point of view: the result is already
// persisted before this is called.
func (p *Publisher) PublishTestCompleted(ctx context.Context, result *models.TestResult) error {
	event := TestEvent{
		TestID:    result.TestID,
		Status:    result.Status,
		Timestamp: result.Timestamp,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal test event: %w", err)
	}

	if _, err := p.js.Publish(ctx, SubjectTestCompleted, data); err != nil {
		return fmt.Errorf("failed to publish test event: %w", err)
	}

	eventsPublishedTotal.WithLabelValues(string(result.Status)).Inc()
	return nil
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
