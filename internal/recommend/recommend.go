// Package recommend turns a finished test result into actionable
// recommendations. The rule synthesizer applies fixed thresholds; the LLM
// synthesizer layers free-form analysis on top and falls back to the
// rules when the provider is unavailable.
package recommend

import (
	"context"

	"github.com/network-diagnostics-platform/internal/models"
)

// Severity ranks how urgently a recommendation should be acted on.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Recommendation is one piece of advice derived from a test result.
type Recommendation struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`

	// AgentSource records which synthesizer produced this entry.
	AgentSource string `json:"agent_source"`

	// Confidence in [0, 1]. Rule-derived entries carry a fixed high
	// confidence; generated text is scored lower.
	Confidence float64 `json:"confidence"`

	// Category is the probe category the advice relates to, empty for
	// run-wide advice.
	Category models.Category `json:"category,omitempty"`
}

// Synthesizer derives recommendations from a test result. Implementations
// must return at least one recommendation for any finished result.
type Synthesizer interface {
	Synthesize(ctx context.Context, result *models.TestResult) ([]Recommendation, error)
}
