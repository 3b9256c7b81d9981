package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/database"
	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/recommend"
	"github.com/network-diagnostics-platform/internal/retry"
	"github.com/network-diagnostics-platform/internal/validation"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*database.TestRecord
	recs    map[string][]recommend.Recommendation

	createErrs int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[string]*database.TestRecord),
		recs:    make(map[string][]recommend.Recommendation),
	}
}

func (m *memoryStore) CreateTest(ctx context.Context, testID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErrs > 0 {
		m.createErrs--
		return errors.New("transient write failure")
	}
	m.records[testID] = &database.TestRecord{
		TestID:    testID,
		Status:    models.StatusRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return nil
}

func (m *memoryStore) StoreResult(ctx context.Context, result *models.TestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[result.TestID]
	if !ok {
		return database.ErrNotFound
	}
	record.Status = result.Status
	record.Result = result
	record.UpdatedAt = time.Now()
	return nil
}

func (m *memoryStore) GetTest(ctx context.Context, testID string) (*database.TestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[testID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *memoryStore) StoreRecommendations(ctx context.Context, testID string, recs []recommend.Recommendation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[testID] = recs
	return nil
}

func (m *memoryStore) GetRecommendations(ctx context.Context, testID string) ([]recommend.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs[testID], nil
}

type stubRunner struct {
	status models.TestStatus
}

func (r *stubRunner) RunTestWithID(ctx context.Context, testID string, req models.TestRequest) (*models.TestResult, error) {
	result := models.NewTestResult(testID)
	result.LatencyResults = []models.LatencyStats{
		{Host: req.TargetHosts[0], PacketsSent: 10, PacketsReceived: 10, AvgMs: 15, MinMs: 10, MaxMs: 20},
	}
	for _, c := range req.EnabledCategories() {
		status := models.ProbeSuccess
		if r.status == models.StatusFailed {
			status = models.ProbeFailed
		}
		result.SetCategoryStatus(c, status, "")
	}
	result.Finalize()
	return result, nil
}

// deadlineRunner consumes its entire context budget before returning a
// finalized failed result, the way a run of slow probes would.
type deadlineRunner struct{}

func (r *deadlineRunner) RunTestWithID(ctx context.Context, testID string, req models.TestRequest) (*models.TestResult, error) {
	<-ctx.Done()
	result := models.NewTestResult(testID)
	for _, c := range req.EnabledCategories() {
		result.SetCategoryStatus(c, models.ProbeFailed, "timed out")
	}
	result.Finalize()
	return result, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishTestCompleted(ctx context.Context, result *models.TestResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, result.TestID)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func testService(store *memoryStore, runner Runner, publisher Publisher) *TestService {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := DefaultConfig()
	cfg.PersistRetry = retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}

	validator := validation.NewValidator(log)
	synth := recommend.NewRuleSynthesizer(recommend.DefaultThresholds(), log)
	return NewTestService(store, runner, validator, synth, publisher, cfg, log)
}

// waitForStatus polls until the record leaves the running state.
func waitForStatus(t *testing.T, store *memoryStore, testID string) *database.TestRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.GetTest(context.Background(), testID)
		if err == nil && record.Status != models.StatusRunning {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("test %s never finished", testID)
	return nil
}

func TestStartTestFullLifecycle(t *testing.T) {
	store := newMemoryStore()
	publisher := &recordingPublisher{}
	svc := testService(store, &stubRunner{status: models.StatusCompleted}, publisher)

	testID, err := svc.StartTest(context.Background(), models.DefaultTestRequest())
	if err != nil {
		t.Fatalf("StartTest failed: %v", err)
	}
	if testID == "" {
		t.Fatal("StartTest returned empty id")
	}

	// The record must exist immediately, in the running state or later.
	if _, err := svc.GetTest(context.Background(), testID); err != nil {
		t.Fatalf("GetTest right after start failed: %v", err)
	}

	record := waitForStatus(t, store, testID)
	if record.Status != models.StatusCompleted {
		t.Errorf("final status = %q, want %q", record.Status, models.StatusCompleted)
	}
	if record.Result == nil {
		t.Fatal("finished record has no result")
	}

	recs, err := svc.GetRecommendations(context.Background(), testID)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if len(recs) == 0 {
		t.Error("finished run must have at least one recommendation")
	}
	if publisher.count() != 1 {
		t.Errorf("published events = %d, want 1", publisher.count())
	}
}

func TestStartTestRejectsInvalidRequest(t *testing.T) {
	store := newMemoryStore()
	svc := testService(store, &stubRunner{status: models.StatusCompleted}, nil)

	req := models.DefaultTestRequest()
	req.PacketCount = 5

	if _, err := svc.StartTest(context.Background(), req); err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.records) != 0 {
		t.Error("invalid request must not create a record")
	}
}

func TestStartTestRetriesTransientStoreFailures(t *testing.T) {
	store := newMemoryStore()
	store.createErrs = 2
	svc := testService(store, &stubRunner{status: models.StatusCompleted}, nil)

	testID, err := svc.StartTest(context.Background(), models.DefaultTestRequest())
	if err != nil {
		t.Fatalf("StartTest failed despite retry budget: %v", err)
	}
	waitForStatus(t, store, testID)
}

func TestStartTestWithoutPublisher(t *testing.T) {
	store := newMemoryStore()
	svc := testService(store, &stubRunner{status: models.StatusFailed}, nil)

	testID, err := svc.StartTest(context.Background(), models.DefaultTestRequest())
	if err != nil {
		t.Fatalf("StartTest failed: %v", err)
	}

	record := waitForStatus(t, store, testID)
	if record.Status != models.StatusFailed {
		t.Errorf("final status = %q, want %q", record.Status, models.StatusFailed)
	}
}

func TestRunTimeoutStillPersistsResult(t *testing.T) {
	store := newMemoryStore()
	publisher := &recordingPublisher{}
	svc := testService(store, &deadlineRunner{}, publisher)
	svc.cfg.RunTimeout = 20 * time.Millisecond

	testID, err := svc.StartTest(context.Background(), models.DefaultTestRequest())
	if err != nil {
		t.Fatalf("StartTest failed: %v", err)
	}

	// Even though the run exhausted its timeout, the result must be
	// written under a fresh budget instead of the expired run context.
	record := waitForStatus(t, store, testID)
	if record.Status != models.StatusFailed {
		t.Errorf("final status = %q, want %q", record.Status, models.StatusFailed)
	}
	if record.Result == nil {
		t.Fatal("finished record has no result")
	}
	if publisher.count() != 1 {
		t.Errorf("published events = %d, want 1", publisher.count())
	}
}

func TestGetTestUnknownID(t *testing.T) {
	svc := testService(newMemoryStore(), &stubRunner{}, nil)

	_, err := svc.GetTest(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
