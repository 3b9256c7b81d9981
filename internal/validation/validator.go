// Package validation inspects a finished test result for completeness.
// It is a pure structural check: it never re-runs probes and never
// mutates the result, so validating the same result twice always yields
// the same report.
package validation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
)

// Report partitions the enabled categories of one test run.
type Report struct {
	// IsComplete is true when every enabled category is fully successful.
	IsComplete bool `json:"is_complete"`

	// Missing lists enabled categories whose payload is absent entirely.
	Missing []models.Category `json:"missing"`

	// Partial lists categories whose payload exists but carries inline
	// errors or structurally invalid values.
	Partial []models.Category `json:"partial"`

	// Successful lists categories with a complete, well-formed payload.
	Successful []models.Category `json:"successful"`

	// Errors holds one human-readable finding per defect.
	Errors []string `json:"errors,omitempty"`
}

// Validator checks test results against the structural expectations of
// each probe category.
type Validator struct {
	log *logrus.Logger
}

func NewValidator(log *logrus.Logger) *Validator {
	return &Validator{log: log}
}

// Validate examines result against the categories enabled in req and
// partitions them into missing, partial and successful.
func (v *Validator) Validate(req models.TestRequest, result *models.TestResult) Report {
	report := Report{}

	for _, c := range req.EnabledCategories() {
		state, findings := v.checkCategory(c, result)
		switch state {
		case categoryMissing:
			report.Missing = append(report.Missing, c)
		case categoryPartial:
			report.Partial = append(report.Partial, c)
		case categoryOK:
			report.Successful = append(report.Successful, c)
		}
		report.Errors = append(report.Errors, findings...)
	}

	report.IsComplete = len(report.Missing) == 0 && len(report.Partial) == 0

	v.log.WithFields(logrus.Fields{
		"test_id":    result.TestID,
		"complete":   report.IsComplete,
		"missing":    len(report.Missing),
		"partial":    len(report.Partial),
		"successful": len(report.Successful),
	}).Info("Validated test result")

	return report
}

type categoryState int

const (
	categoryOK categoryState = iota
	categoryPartial
	categoryMissing
)

func (v *Validator) checkCategory(c models.Category, result *models.TestResult) (categoryState, []string) {
	switch c {
	case models.CategoryLatency:
		return checkLatency(result.LatencyResults)
	case models.CategoryJitter:
		return checkJitter(result.JitterResult)
	case models.CategoryPacketLoss:
		return checkPacketLoss(result.PacketLossResult)
	case models.CategoryThroughput:
		return checkThroughput(result.ThroughputResult)
	case models.CategoryDNS:
		return checkResolution(result.DNSResults)
	default:
		return categoryMissing, []string{fmt.Sprintf("unknown category %s", c)}
	}
}

func checkLatency(entries []models.LatencyStats) (categoryState, []string) {
	if len(entries) == 0 {
		return categoryMissing, []string{"latency: no results recorded"}
	}

	var findings []string
	for _, e := range entries {
		if e.Error != "" {
			findings = append(findings, fmt.Sprintf("latency: %s: %s", e.Host, e.Error))
			continue
		}
		if e.PacketsSent <= 0 {
			findings = append(findings, fmt.Sprintf("latency: %s: no packets sent", e.Host))
		}
		if e.MinMs < 0 || e.MaxMs < 0 || e.AvgMs < 0 || e.StddevMs < 0 {
			findings = append(findings, fmt.Sprintf("latency: %s: negative timing values", e.Host))
		}
		if e.MinMs > e.MaxMs {
			findings = append(findings, fmt.Sprintf("latency: %s: min exceeds max", e.Host))
		}
	}
	if len(findings) > 0 {
		return categoryPartial, findings
	}
	return categoryOK, nil
}

func checkJitter(stats *models.JitterStats) (categoryState, []string) {
	if stats == nil {
		return categoryMissing, []string{"jitter: no result recorded"}
	}
	if stats.Error != "" {
		return categoryPartial, []string{fmt.Sprintf("jitter: %s", stats.Error)}
	}

	var findings []string
	if stats.AvgJitterMs < 0 || stats.MinJitterMs < 0 || stats.MaxJitterMs < 0 {
		findings = append(findings, "jitter: negative jitter values")
	}
	if stats.SuccessfulMeasurements < 2 {
		findings = append(findings, fmt.Sprintf("jitter: only %d successful measurements", stats.SuccessfulMeasurements))
	}
	if len(findings) > 0 {
		return categoryPartial, findings
	}
	return categoryOK, nil
}

func checkPacketLoss(stats *models.PacketLossStats) (categoryState, []string) {
	if stats == nil {
		return categoryMissing, []string{"packet_loss: no result recorded"}
	}
	if stats.Error != "" {
		return categoryPartial, []string{fmt.Sprintf("packet_loss: %s", stats.Error)}
	}

	var findings []string
	if stats.PacketsSent <= 0 {
		findings = append(findings, "packet_loss: no packets sent")
	}
	if stats.LossPercentage < 0 || stats.LossPercentage > 100 {
		findings = append(findings, fmt.Sprintf("packet_loss: loss percentage %v out of range", stats.LossPercentage))
	}
	if stats.SuccessRate < 0 || stats.SuccessRate > 100 {
		findings = append(findings, fmt.Sprintf("packet_loss: success rate %v out of range", stats.SuccessRate))
	}
	if len(findings) > 0 {
		return categoryPartial, findings
	}
	return categoryOK, nil
}

func checkThroughput(stats *models.ThroughputStats) (categoryState, []string) {
	if stats == nil {
		return categoryMissing, []string{"throughput: no result recorded"}
	}
	if stats.Error != "" {
		return categoryPartial, []string{fmt.Sprintf("throughput: %s", stats.Error)}
	}

	var findings []string
	if stats.DownloadMbps < 0 || stats.UploadMbps < 0 {
		findings = append(findings, "throughput: negative bandwidth values")
	}
	if stats.ServerHost == "" {
		findings = append(findings, "throughput: no measurement server recorded")
	}
	if len(findings) > 0 {
		return categoryPartial, findings
	}
	return categoryOK, nil
}

func checkResolution(entries []models.ResolutionStats) (categoryState, []string) {
	if len(entries) == 0 {
		return categoryMissing, []string{"dns: no results recorded"}
	}

	var findings []string
	for _, e := range entries {
		if e.Error != "" {
			findings = append(findings, fmt.Sprintf("dns: %s: %s", e.DNSServer, e.Error))
			continue
		}
		if e.SuccessRate < 0 || e.SuccessRate > 100 {
			findings = append(findings, fmt.Sprintf("dns: %s: success rate %v out of range", e.DNSServer, e.SuccessRate))
		}
		if e.SuccessfulQueries+e.FailedQueries != e.QueriesTested {
			findings = append(findings, fmt.Sprintf("dns: %s: query counts do not add up", e.DNSServer))
		}
	}
	if len(findings) > 0 {
		return categoryPartial, findings
	}
	return categoryOK, nil
}
