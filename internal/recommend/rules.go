package recommend

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

const (
	sourceRules = "rules"

	// ruleConfidence applies to every threshold-derived entry.
	ruleConfidence = 0.9
)

// Thresholds are the fixed limits applied by the rule synthesizer. Values
// are in the units of the corresponding payload field.
type Thresholds struct {
	LatencyWarnMs      float64
	LatencyCriticalMs  float64
	JitterWarnMs       float64
	JitterCriticalMs   float64
	LossWarnPct        float64
	LossCriticalPct    float64
	DownloadWarnMbps   float64
	UploadWarnMbps     float64
	ResolutionWarnMs   float64
	DNSSuccessRatePct  float64
}

// DefaultThresholds returns limits tuned for consumer broadband links.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyWarnMs:     100,
		LatencyCriticalMs: 250,
		JitterWarnMs:      30,
		JitterCriticalMs:  50,
		LossWarnPct:       1,
		LossCriticalPct:   5,
		DownloadWarnMbps:  10,
		UploadWarnMbps:    2,
		ResolutionWarnMs:  100,
		DNSSuccessRatePct: 80,
	}
}

// RuleSynthesizer applies fixed thresholds to each category payload. It
// never errors and always produces at least one recommendation.
type RuleSynthesizer struct {
	thresholds Thresholds
	log        *logrus.Logger
}

func NewRuleSynthesizer(thresholds Thresholds, log *logrus.Logger) *RuleSynthesizer {
	return &RuleSynthesizer{thresholds: thresholds, log: log}
}

func (s *RuleSynthesizer) Synthesize(ctx context.Context, result *models.TestResult) ([]Recommendation, error) {
	var recs []Recommendation

	recs = append(recs, s.checkFailures(result)...)
	recs = append(recs, s.checkLatency(result.LatencyResults)...)
	recs = append(recs, s.checkJitter(result.JitterResult)...)
	recs = append(recs, s.checkPacketLoss(result.PacketLossResult)...)
	recs = append(recs, s.checkThroughput(result.ThroughputResult)...)
	recs = append(recs, s.checkResolution(result.DNSResults)...)

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Text:        "No network issues detected; all measured values are within normal ranges.",
			Severity:    SeverityInfo,
			AgentSource: sourceRules,
		})
	}
	for i := range recs {
		recs[i].Confidence = ruleConfidence
	}

	s.log.WithFields(logrus.Fields{
		"test_id":         result.TestID,
		"recommendations": len(recs),
	}).Info("Synthesized rule-based recommendations")

	return recs, nil
}

// checkFailures surfaces categories that never produced a measurement.
func (s *RuleSynthesizer) checkFailures(result *models.TestResult) []Recommendation {
	var recs []Recommendation
	for _, c := range models.AllCategories() {
		if result.CategoryStatus[c] != models.ProbeFailed {
			continue
		}
		recs = append(recs, Recommendation{
			Text: fmt.Sprintf("The %s probe failed (%s); verify connectivity and permissions, then rerun the test.",
				c, result.Errors[c]),
			Severity:    SeverityCritical,
			AgentSource: sourceRules,
			Category:    c,
		})
	}
	return recs
}

func (s *RuleSynthesizer) checkLatency(entries []models.LatencyStats) []Recommendation {
	var recs []Recommendation
	for _, e := range entries {
		if e.Error != "" {
			continue
		}
		switch {
		case e.AvgMs >= s.thresholds.LatencyCriticalMs:
			recs = append(recs, Recommendation{
				Text: fmt.Sprintf("Average latency to %s is %.0fms; real-time applications will be unusable. Check for routing problems or link saturation.",
					e.Host, e.AvgMs),
				Severity:    SeverityCritical,
				AgentSource: sourceRules,
				Category:    models.CategoryLatency,
			})
		case e.AvgMs >= s.thresholds.LatencyWarnMs:
			recs = append(recs, Recommendation{
				Text: fmt.Sprintf("Average latency to %s is %.0fms, above the %.0fms comfort threshold for interactive use.",
					e.Host, e.AvgMs, s.thresholds.LatencyWarnMs),
				Severity:    SeverityWarning,
				AgentSource: sourceRules,
				Category:    models.CategoryLatency,
			})
		}
	}
	return recs
}

func (s *RuleSynthesizer) checkJitter(stats *models.JitterStats) []Recommendation {
	if stats == nil || stats.Error != "" {
		return nil
	}
	switch {
	case stats.AvgJitterMs >= s.thresholds.JitterCriticalMs:
		return []Recommendation{{
			Text: fmt.Sprintf("Average jitter is %.0fms; voice and video calls will stutter. Prefer a wired connection and check for competing traffic.",
				stats.AvgJitterMs),
			Severity:    SeverityCritical,
			AgentSource: sourceRules,
			Category:    models.CategoryJitter,
		}}
	case stats.AvgJitterMs >= s.thresholds.JitterWarnMs:
		return []Recommendation{{
			Text: fmt.Sprintf("Average jitter is %.0fms, which can degrade real-time media quality.",
				stats.AvgJitterMs),
			Severity:    SeverityWarning,
			AgentSource: sourceRules,
			Category:    models.CategoryJitter,
		}}
	}
	return nil
}

func (s *RuleSynthesizer) checkPacketLoss(stats *models.PacketLossStats) []Recommendation {
	if stats == nil || stats.Error != "" {
		return nil
	}
	switch {
	case stats.LossPercentage >= s.thresholds.LossCriticalPct:
		return []Recommendation{{
			Text: fmt.Sprintf("Packet loss is %.1f%%; connections will stall and retransmit heavily. Inspect cabling, Wi-Fi signal strength and upstream congestion.",
				stats.LossPercentage),
			Severity:    SeverityCritical,
			AgentSource: sourceRules,
			Category:    models.CategoryPacketLoss,
		}}
	case stats.LossPercentage >= s.thresholds.LossWarnPct:
		return []Recommendation{{
			Text: fmt.Sprintf("Packet loss is %.1f%%, above the %.1f%% threshold where TCP performance starts to suffer.",
				stats.LossPercentage, s.thresholds.LossWarnPct),
			Severity:    SeverityWarning,
			AgentSource: sourceRules,
			Category:    models.CategoryPacketLoss,
		}}
	}
	return nil
}

func (s *RuleSynthesizer) checkThroughput(stats *models.ThroughputStats) []Recommendation {
	if stats == nil || stats.Error != "" {
		return nil
	}
	var recs []Recommendation
	if stats.DownloadMbps > 0 && stats.DownloadMbps < s.thresholds.DownloadWarnMbps {
		recs = append(recs, Recommendation{
			Text: fmt.Sprintf("Download bandwidth is %.1f Mbps; streaming and large transfers will be slow. Compare against your provisioned rate.",
				stats.DownloadMbps),
			Severity:    SeverityWarning,
			AgentSource: sourceRules,
			Category:    models.CategoryThroughput,
		})
	}
	if stats.UploadMbps > 0 && stats.UploadMbps < s.thresholds.UploadWarnMbps {
		recs = append(recs, Recommendation{
			Text: fmt.Sprintf("Upload bandwidth is %.1f Mbps; video calls and backups will be constrained.",
				stats.UploadMbps),
			Severity:    SeverityWarning,
			AgentSource: sourceRules,
			Category:    models.CategoryThroughput,
		})
	}
	return recs
}

func (s *RuleSynthesizer) checkResolution(entries []models.ResolutionStats) []Recommendation {
	var recs []Recommendation
	for _, e := range entries {
		if e.Error != "" {
			recs = append(recs, Recommendation{
				Text: fmt.Sprintf("DNS server %s answered no queries; switch to a working resolver such as a public DNS service.",
					e.DNSServer),
				Severity:    SeverityCritical,
				AgentSource: sourceRules,
				Category:    models.CategoryDNS,
			})
			continue
		}
		if e.SuccessRate < s.thresholds.DNSSuccessRatePct {
			recs = append(recs, Recommendation{
				Text: fmt.Sprintf("DNS server %s resolved only %.0f%% of queries; intermittent resolution failures will appear as random page load errors.",
					e.DNSServer, e.SuccessRate),
				Severity:    SeverityWarning,
				AgentSource: sourceRules,
				Category:    models.CategoryDNS,
			})
		}
		if e.AvgResolutionMs >= s.thresholds.ResolutionWarnMs {
			recs = append(recs, Recommendation{
				Text: fmt.Sprintf("DNS server %s averages %.0fms per lookup; a faster resolver would reduce page load times.",
					e.DNSServer, e.AvgResolutionMs),
				Severity:    SeverityWarning,
				AgentSource: sourceRules,
				Category:    models.CategoryDNS,
			})
		}
	}
	return recs
}
