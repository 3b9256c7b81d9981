package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/database"
	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/recommend"
)

type fakeService struct {
	records map[string]*database.TestRecord
	recs    map[string][]recommend.Recommendation

	lastRequest models.TestRequest
}

func newFakeService() *fakeService {
	return &fakeService{
		records: make(map[string]*database.TestRecord),
		recs:    make(map[string][]recommend.Recommendation),
	}
}

func (f *fakeService) StartTest(ctx context.Context, req models.TestRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	f.lastRequest = req
	id := "test-123"
	f.records[id] = &database.TestRecord{TestID: id, Status: models.StatusRunning}
	return id, nil
}

func (f *fakeService) GetTest(ctx context.Context, testID string) (*database.TestRecord, error) {
	record, ok := f.records[testID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return record, nil
}

func (f *fakeService) GetRecommendations(ctx context.Context, testID string) ([]recommend.Recommendation, error) {
	return f.recs[testID], nil
}

func testAPI(svc TestAPI) http.Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewAPI(svc, APIConfig{AllowedOrigins: []string{"*"}}, log).Handler()
}

func TestStartTestEndpoint(t *testing.T) {
	svc := newFakeService()
	handler := testAPI(svc)

	body := `{"target_hosts":["9.9.9.9"],"dns_servers":["9.9.9.9"],"packet_count":50,"run_latency":true,"run_jitter":false,"run_packet_loss":false,"run_throughput":false,"run_dns":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["test_id"] == "" {
		t.Error("response has no test_id")
	}
	if resp["status"] != string(models.StatusRunning) {
		t.Errorf("status = %q, want running", resp["status"])
	}
	if svc.lastRequest.PacketCount != 50 {
		t.Errorf("service received packet_count %d, want 50", svc.lastRequest.PacketCount)
	}
	if svc.lastRequest.RunJitter {
		t.Error("service received run_jitter = true, want false")
	}
}

func TestStartTestEmptyBodyUsesDefaults(t *testing.T) {
	svc := newFakeService()
	handler := testAPI(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tests", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}
	want := models.DefaultTestRequest()
	if svc.lastRequest.PacketCount != want.PacketCount || !svc.lastRequest.RunDNS {
		t.Errorf("service request = %+v, want defaults", svc.lastRequest)
	}
}

func TestStartTestInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"target_hosts":`},
		{"no categories", `{"target_hosts":["8.8.8.8"],"dns_servers":["8.8.8.8"],"packet_count":100}`},
		{"packet count out of range", `{"target_hosts":["8.8.8.8"],"dns_servers":["8.8.8.8"],"packet_count":5000,"run_latency":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testAPI(newFakeService())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/tests", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetTestEndpoint(t *testing.T) {
	svc := newFakeService()
	result := models.NewTestResult("test-123")
	result.Status = models.StatusCompleted
	svc.records["test-123"] = &database.TestRecord{
		TestID: "test-123",
		Status: models.StatusCompleted,
		Result: result,
	}

	handler := testAPI(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/test-123", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var record database.TestRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if record.TestID != "test-123" || record.Status != models.StatusCompleted {
		t.Errorf("record = %+v, want test-123/completed", record)
	}
}

func TestGetTestNotFound(t *testing.T) {
	handler := testAPI(newFakeService())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/unknown", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetRecommendationsEndpoint(t *testing.T) {
	svc := newFakeService()
	svc.records["test-123"] = &database.TestRecord{TestID: "test-123", Status: models.StatusCompleted}
	svc.recs["test-123"] = []recommend.Recommendation{
		{Text: "No network issues detected.", Severity: recommend.SeverityInfo, AgentSource: "rules"},
	}

	handler := testAPI(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/test-123/recommendations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TestID          string                     `json:"test_id"`
		Recommendations []recommend.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Recommendations) != 1 {
		t.Errorf("recommendations = %d, want 1", len(resp.Recommendations))
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := testAPI(newFakeService())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := testAPI(newFakeService())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
