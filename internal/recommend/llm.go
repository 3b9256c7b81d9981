package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

const (
	sourceLLM = "llm"

	// llmConfidence applies to generated narrative entries, scored below
	// the deterministic rules.
	llmConfidence = 0.6
)

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// LLMProvider is the interface for LLM integrations
type LLMProvider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// LLMSynthesizer asks an LLM for a narrative assessment of the test
// result and appends it to the rule-based recommendations. Provider
// failures degrade to rules only; the caller always gets a usable set.
type LLMSynthesizer struct {
	provider LLMProvider
	rules    *RuleSynthesizer
	log      *logrus.Logger
}

func NewLLMSynthesizer(provider LLMProvider, rules *RuleSynthesizer, log *logrus.Logger) *LLMSynthesizer {
	return &LLMSynthesizer{provider: provider, rules: rules, log: log}
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, result *models.TestResult) ([]Recommendation, error) {
	recs, err := s.rules.Synthesize(ctx, result)
	if err != nil {
		return nil, err
	}

	messages := []Message{
		{Role: "system", Content: "You are a network diagnostics assistant. Given measurement results, explain the user-visible impact and suggest concrete fixes in plain language."},
		{Role: "user", Content: summarizeResult(result)},
	}

	answer, err := s.provider.Complete(ctx, messages)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"test_id": result.TestID,
			"error":   err.Error(),
		}).Warn("LLM provider unavailable, returning rule-based recommendations only")
		return recs, nil
	}

	recs = append(recs, Recommendation{
		Text:        answer,
		Severity:    SeverityInfo,
		AgentSource: sourceLLM,
		Confidence:  llmConfidence,
	})
	return recs, nil
}

// summarizeResult renders the result as a compact prompt. Only measured
// values go in; raw sample arrays are omitted to keep the prompt small.
func summarizeResult(result *models.TestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnostic test %s finished with status %s.\n", result.TestID, result.Status)

	for _, e := range result.LatencyResults {
		if e.Error != "" {
			fmt.Fprintf(&b, "Latency to %s: failed (%s).\n", e.Host, e.Error)
			continue
		}
		fmt.Fprintf(&b, "Latency to %s: avg %.1fms, min %.1fms, max %.1fms, stddev %.1fms.\n",
			e.Host, e.AvgMs, e.MinMs, e.MaxMs, e.StddevMs)
	}
	if j := result.JitterResult; j != nil && j.Error == "" {
		fmt.Fprintf(&b, "Jitter against %s: avg %.1fms, max %.1fms.\n", j.Host, j.AvgJitterMs, j.MaxJitterMs)
	}
	if p := result.PacketLossResult; p != nil && p.Error == "" {
		fmt.Fprintf(&b, "Packet loss against %s: %.1f%% of %d packets.\n", p.Host, p.LossPercentage, p.PacketsSent)
	}
	if t := result.ThroughputResult; t != nil && t.Error == "" {
		fmt.Fprintf(&b, "Throughput via %s: %.1f Mbps down, %.1f Mbps up.\n", t.ServerHost, t.DownloadMbps, t.UploadMbps)
	}
	for _, e := range result.DNSResults {
		if e.Error != "" {
			fmt.Fprintf(&b, "DNS server %s: %s.\n", e.DNSServer, e.Error)
			continue
		}
		fmt.Fprintf(&b, "DNS server %s: avg %.1fms, %d/%d queries resolved.\n",
			e.DNSServer, e.AvgResolutionMs, e.SuccessfulQueries, e.QueriesTested)
	}
	for c, msg := range result.Errors {
		fmt.Fprintf(&b, "Probe %s failed: %s.\n", c, msg)
	}
	return b.String()
}

// MockLLMProvider provides canned responses for development and testing.
type MockLLMProvider struct{}

// NewMockLLMProvider creates a new mock LLM provider
func NewMockLLMProvider() *MockLLMProvider {
	return &MockLLMProvider{}
}

// Complete generates a mock response keyed off the result summary.
func (m *MockLLMProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	summary := strings.ToLower(messages[len(messages)-1].Content)

	if strings.Contains(summary, "dns queries failed") || strings.Contains(summary, "answered no queries") {
		return "Your configured DNS server is not responding. Websites will appear down even though the connection itself works. Switch your router or device to a public resolver (for example 1.1.1.1 or 8.8.8.8) and rerun the test.", nil
	}
	if strings.Contains(summary, "packet loss") && !strings.Contains(summary, "0.0% of") {
		return "The measurements show packet loss on your connection. This typically causes video call freezes and slow downloads. If you are on Wi-Fi, test again next to the router with a cable; persistent loss on a wired link points at your provider's line.", nil
	}
	if strings.Contains(summary, "status failed") {
		return "None of the probes could complete. Check that this machine has a working network connection and that outbound traffic is not blocked by a firewall, then rerun the test.", nil
	}

	return "Overall your connection looks healthy. Latency, jitter and packet loss are within normal ranges for interactive use, and DNS resolution is responsive. No action needed.", nil
}
