// Package service coordinates a full test lifecycle: persist a running
// record, execute the orchestration, validate and store the outcome,
// derive recommendations and announce completion.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/database"
	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/recommend"
	"github.com/network-diagnostics-platform/internal/retry"
	"github.com/network-diagnostics-platform/internal/tracing"
	"github.com/network-diagnostics-platform/internal/validation"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateTest(ctx context.Context, testID string) error
	StoreResult(ctx context.Context, result *models.TestResult) error
	GetTest(ctx context.Context, testID string) (*database.TestRecord, error)
	StoreRecommendations(ctx context.Context, testID string, recs []recommend.Recommendation) error
	GetRecommendations(ctx context.Context, testID string) ([]recommend.Recommendation, error)
}

// Runner executes one diagnostic test under a pre-assigned id.
type Runner interface {
	RunTestWithID(ctx context.Context, testID string, req models.TestRequest) (*models.TestResult, error)
}

// Publisher announces finished runs to downstream consumers.
type Publisher interface {
	PublishTestCompleted(ctx context.Context, result *models.TestResult) error
}

// Config tunes the service.
type Config struct {
	// RunTimeout bounds one complete orchestration run.
	RunTimeout time.Duration

	// PersistTimeout bounds the post-run writes and publish. It is a
	// separate budget: a run that consumed all of RunTimeout must still
	// get its result persisted.
	PersistTimeout time.Duration

	// PersistRetry is applied to database writes.
	PersistRetry retry.Policy
}

// DefaultConfig returns service defaults.
func DefaultConfig() Config {
	return Config{
		RunTimeout:     10 * time.Minute,
		PersistTimeout: 30 * time.Second,
		PersistRetry: retry.Policy{
			MaxRetries: 3,
			BaseDelay:  200 * time.Millisecond,
			Multiplier: 2,
			MaxDelay:   5 * time.Second,
		},
	}
}

// TestService runs diagnostic tests asynchronously and serves their
// stored state.
type TestService struct {
	store     Store
	runner    Runner
	validator *validation.Validator
	synth     recommend.Synthesizer
	publisher Publisher // optional
	cfg       Config
	log       *logrus.Logger
}

// NewTestService wires the service. publisher may be nil when no queue is
// configured.
func NewTestService(store Store, runner Runner, validator *validation.Validator, synth recommend.Synthesizer, publisher Publisher, cfg Config, log *logrus.Logger) *TestService {
	return &TestService{
		store:     store,
		runner:    runner,
		validator: validator,
		synth:     synth,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// StartTest validates the request, persists a running record and launches
// the run in the background. It returns the test id immediately.
func (s *TestService) StartTest(ctx context.Context, req models.TestRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid test request: %w", err)
	}

	testID := uuid.New().String()
	if err := retry.Do(ctx, s.cfg.PersistRetry, func() error {
		return s.store.CreateTest(ctx, testID)
	}); err != nil {
		return "", fmt.Errorf("failed to create test record: %w", err)
	}

	s.log.WithField("test_id", testID).Info("Accepted diagnostic test")

	// The run outlives the request context deliberately.
	go s.run(testID, req)

	return testID, nil
}

func (s *TestService) run(testID string, req models.TestRequest) {
	lifecycle, span := tracing.GetTracer("service").Start(context.Background(), "diagnostics.lifecycle")
	defer span.End()

	runCtx, cancelRun := context.WithTimeout(lifecycle, s.cfg.RunTimeout)
	result, err := s.runner.RunTestWithID(runCtx, testID, req)
	cancelRun()

	// Persistence gets its own budget. A run that spent all of RunTimeout
	// still produced a finalized result, and that result must land in the
	// store rather than leaving the record running forever.
	persistTimeout := s.cfg.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(lifecycle, persistTimeout)
	defer cancel()

	if err != nil {
		// The request was validated in StartTest, so this is a
		// programming error; record the run as failed rather than leaving
		// it running forever.
		s.log.WithFields(logrus.Fields{
			"test_id": testID,
			"error":   err.Error(),
		}).Error("Orchestration rejected a validated request")
		result = models.NewTestResult(testID)
		result.Status = models.StatusFailed
	}

	if err := retry.Do(ctx, s.cfg.PersistRetry, func() error {
		return s.store.StoreResult(ctx, result)
	}); err != nil {
		tracing.RecordError(ctx, err)
		s.log.WithFields(logrus.Fields{
			"test_id": testID,
			"error":   err.Error(),
		}).Error("Failed to persist test result")
		return
	}

	report := s.validator.Validate(req, result)
	if !report.IsComplete {
		s.log.WithFields(logrus.Fields{
			"test_id": testID,
			"missing": report.Missing,
			"partial": report.Partial,
		}).Warn("Test result is incomplete")
	}

	recs, err := s.synth.Synthesize(ctx, result)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"test_id": testID,
			"error":   err.Error(),
		}).Error("Failed to synthesize recommendations")
	} else if err := retry.Do(ctx, s.cfg.PersistRetry, func() error {
		return s.store.StoreRecommendations(ctx, testID, recs)
	}); err != nil {
		s.log.WithFields(logrus.Fields{
			"test_id": testID,
			"error":   err.Error(),
		}).Error("Failed to persist recommendations")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTestCompleted(ctx, result); err != nil {
			s.log.WithFields(logrus.Fields{
				"test_id": testID,
				"error":   err.Error(),
			}).Warn("Failed to publish test completion event")
		}
	}
}

// GetTest returns the stored state of one run.
func (s *TestService) GetTest(ctx context.Context, testID string) (*database.TestRecord, error) {
	return s.store.GetTest(ctx, testID)
}

// GetRecommendations returns the stored recommendations of one run.
func (s *TestService) GetRecommendations(ctx context.Context, testID string) ([]recommend.Recommendation, error) {
	return s.store.GetRecommendations(ctx, testID)
}
