package models

import (
	"time"
)

// TestStatus is the overall status of one diagnostic test run.
type TestStatus string

const (
	StatusRunning   TestStatus = "running"
	StatusCompleted TestStatus = "completed"
	// StatusPartial indicates at least one category succeeded and at
	// least one failed.
	StatusPartial TestStatus = "partial"
	StatusFailed  TestStatus = "failed"
)

// ProbeStatus is the terminal status of one probe category within a run.
// A disabled category has no ProbeStatus entry at all; an enabled
// category transitions exactly once to success or failed.
type ProbeStatus string

const (
	ProbeSkipped ProbeStatus = "skipped"
	ProbeSuccess ProbeStatus = "success"
	ProbeFailed  ProbeStatus = "failed"
)

// ErrorKind classifies a probe failure for diagnosis and retry decisions.
type ErrorKind string

const (
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindPermission    ErrorKind = "permission_denied"
	ErrorKindUnreachable   ErrorKind = "unreachable"
	ErrorKindConfiguration ErrorKind = "configuration"
	// ErrorKindInsufficientData marks a probe that reached its target but
	// collected too few samples to compute its statistics.
	ErrorKindInsufficientData ErrorKind = "insufficient_data"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// LatencyStats is the payload of one latency probe run against one host.
// Echo requests that get no response are excluded from the statistics;
// only a run with zero responses is reported as a probe failure.
type LatencyStats struct {
	Host            string  `json:"host"`
	PacketsSent     int     `json:"packets_sent"`
	PacketsReceived int     `json:"packets_received"`
	MinMs           float64 `json:"min_ms"`
	MaxMs           float64 `json:"max_ms"`
	AvgMs           float64 `json:"avg_ms"`
	StddevMs        float64 `json:"stddev_ms"`

	// Error marks a placeholder entry recorded when the probe for this
	// host exhausted its retries. Empty on a healthy measurement.
	Error string `json:"error,omitempty"`
}

// JitterStats is the payload of one jitter probe run. Jitter sample i is
// |latency[i] - latency[i-1]| over consecutive echo round trips.
type JitterStats struct {
	Host                   string    `json:"host"`
	AvgJitterMs            float64   `json:"avg_jitter_ms"`
	MaxJitterMs            float64   `json:"max_jitter_ms"`
	MinJitterMs            float64   `json:"min_jitter_ms"`
	Measurements           []float64 `json:"measurements"`
	JitterValues           []float64 `json:"jitter_values"`
	SuccessfulMeasurements int       `json:"successful_measurements"`
	TotalMeasurements      int       `json:"total_measurements"`
	Error                  string    `json:"error,omitempty"`
}

// PacketLossStats is the payload of one packet loss probe run.
// Zero loss is a normal successful outcome, not an error.
type PacketLossStats struct {
	Host            string  `json:"host"`
	PacketsSent     int     `json:"packets_sent"`
	PacketsReceived int     `json:"packets_received"`
	PacketsLost     int     `json:"packets_lost"`
	LossPercentage  float64 `json:"loss_percentage"`
	SuccessRate     float64 `json:"success_rate"`
	Error           string  `json:"error,omitempty"`
}

// ThroughputStats is the payload of one throughput probe run against the
// auto-selected measurement server.
type ThroughputStats struct {
	DownloadMbps   float64 `json:"download_mbps"`
	UploadMbps     float64 `json:"upload_mbps"`
	PingMs         float64 `json:"ping_ms"`
	ServerHost     string  `json:"server_host"`
	ServerLocation string  `json:"server_location"`
	Error          string  `json:"error,omitempty"`
}

// ResolutionStats is the payload of one name resolution probe run against
// one resolver. A run where every query failed still returns a payload
// rather than a probe failure, with the condition noted in Error; the
// orchestrator counts such an entry against category success and the
// validator reports it as partial.
type ResolutionStats struct {
	DNSServer          string    `json:"dns_server"`
	AvgResolutionMs    float64   `json:"avg_resolution_ms"`
	MinResolutionMs    float64   `json:"min_resolution_ms"`
	MaxResolutionMs    float64   `json:"max_resolution_ms"`
	StddevResolutionMs float64   `json:"stddev_resolution_ms"`
	QueriesTested      int       `json:"queries_tested"`
	SuccessfulQueries  int       `json:"successful_queries"`
	FailedQueries      int       `json:"failed_queries"`
	SuccessRate        float64   `json:"success_rate"`
	ResolutionTimes    []float64 `json:"resolution_times"`
	Error              string    `json:"error,omitempty"`
}

// TestResult is the aggregate record produced by one orchestration run.
// It is exclusively owned by the orchestration engine for the duration of
// the run; ownership transfers to the caller once returned.
type TestResult struct {
	TestID    string     `json:"test_id"`
	Timestamp time.Time  `json:"timestamp"`
	Status    TestStatus `json:"status"`

	// LatencyResults holds one entry per target host, index-aligned with
	// the request's target order.
	LatencyResults []LatencyStats `json:"latency_results"`

	JitterResult     *JitterStats     `json:"jitter_results,omitempty"`
	PacketLossResult *PacketLossStats `json:"packet_loss_results,omitempty"`
	ThroughputResult *ThroughputStats `json:"throughput_results,omitempty"`

	// DNSResults holds one entry per configured resolver, index-aligned
	// with the request's server order.
	DNSResults []ResolutionStats `json:"dns_results"`

	// CategoryStatus has exactly one entry per enabled category and none
	// for disabled categories.
	CategoryStatus map[Category]ProbeStatus `json:"category_status"`

	// Errors carries the verbatim failure message per failed category.
	Errors map[Category]string `json:"errors"`
}

// NewTestResult creates an empty aggregate in the running state.
func NewTestResult(testID string) *TestResult {
	return &TestResult{
		TestID:         testID,
		Timestamp:      time.Now().UTC(),
		Status:         StatusRunning,
		CategoryStatus: make(map[Category]ProbeStatus),
		Errors:         make(map[Category]string),
	}
}

// SetCategoryStatus records the terminal status for a category. The first
// write wins; a category never transitions after being set.
func (tr *TestResult) SetCategoryStatus(c Category, status ProbeStatus, errMsg string) {
	if _, done := tr.CategoryStatus[c]; done {
		return
	}
	tr.CategoryStatus[c] = status
	if errMsg != "" {
		tr.Errors[c] = errMsg
	}
}

// DeriveStatus computes the overall status from the per-category statuses.
// Completed iff no attempted category failed, Failed iff none succeeded,
// Partial otherwise.
func DeriveStatus(statuses map[Category]ProbeStatus) TestStatus {
	var succeeded, failed int
	for _, s := range statuses {
		switch s {
		case ProbeSuccess:
			succeeded++
		case ProbeFailed:
			failed++
		}
	}
	switch {
	case succeeded > 0 && failed == 0:
		return StatusCompleted
	case succeeded > 0 && failed > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Finalize derives and stores the overall status.
func (tr *TestResult) Finalize() {
	tr.Status = DeriveStatus(tr.CategoryStatus)
}
