// Package orchestrator runs the probe categories of one diagnostic test
// concurrently and assembles their payloads into a single result. Each
// category is isolated: its failure, however severe, never prevents the
// other categories from finishing or the aggregate from being returned.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/probe"
	"github.com/network-diagnostics-platform/internal/retry"
	"github.com/network-diagnostics-platform/internal/tracing"
)

// ProgressFunc receives coarse progress updates: a human-readable step
// description and a completion percentage in [0, 100]. It may be called
// from multiple goroutines.
type ProgressFunc func(step string, percent float64)

// ProbeFactory builds the probers for one run. Request parameters such as
// the packet count feed into prober configuration here.
type ProbeFactory func(req models.TestRequest) map[models.Category]probe.Prober

// Engine orchestrates one diagnostic test run end to end.
type Engine struct {
	// Probes supplies the per-category probers for each run.
	Probes ProbeFactory

	// Retry is applied to every probe invocation.
	Retry retry.Policy

	// Progress, when set, receives step updates during the run.
	Progress ProgressFunc

	// Sleep overrides the backoff sleep, used by tests.
	Sleep func(ctx context.Context, d time.Duration) error

	log *logrus.Logger
}

// NewEngine returns an Engine with the given probe factory and retry
// policy.
func NewEngine(probes ProbeFactory, policy retry.Policy, log *logrus.Logger) *Engine {
	return &Engine{Probes: probes, Retry: policy, log: log}
}

// categoryOutcome is the private result slot written by exactly one
// category goroutine.
type categoryOutcome struct {
	status  models.ProbeStatus
	errMsg  string
	latency []models.LatencyStats
	jitter  *models.JitterStats
	loss    *models.PacketLossStats
	tput    *models.ThroughputStats
	dns     []models.ResolutionStats
}

// RunTest validates the request, runs every enabled category and returns
// the assembled result under a fresh test id. The only error it can
// return is a request validation error; once orchestration starts, any
// failure, including a panicking prober, surfaces as failed categories
// inside the result.
func (e *Engine) RunTest(ctx context.Context, req models.TestRequest) (*models.TestResult, error) {
	return e.RunTestWithID(ctx, uuid.New().String(), req)
}

// RunTestWithID is RunTest with a caller-supplied test id, used when the
// id was already persisted before the run started.
func (e *Engine) RunTestWithID(ctx context.Context, testID string, req models.TestRequest) (result *models.TestResult, err error) {
	if verr := req.Validate(); verr != nil {
		return nil, fmt.Errorf("invalid test request: %w", verr)
	}

	start := time.Now()
	result = models.NewTestResult(testID)
	enabled := req.EnabledCategories()

	ctx, span := tracing.GetTracer("orchestrator").Start(ctx, "diagnostics.test")
	defer span.End()
	span.SetAttributes(
		attribute.String("test.id", testID),
		attribute.Int("test.categories", len(enabled)),
	)

	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"test_id": result.TestID,
				"panic":   r,
			}).Error("Orchestration panicked")
			for _, c := range enabled {
				result.SetCategoryStatus(c, models.ProbeFailed, fmt.Sprintf("internal error: %v", r))
			}
			result.Finalize()
			err = nil
		}
	}()

	e.log.WithFields(logrus.Fields{
		"test_id":    result.TestID,
		"categories": enabled,
		"targets":    req.TargetHosts,
	}).Info("Starting diagnostic test")

	probers := e.Probes(req)

	var mu sync.Mutex
	completed := 0
	report := func(step string) {
		if e.Progress == nil {
			return
		}
		mu.Lock()
		pct := float64(completed) / float64(len(enabled)) * 100
		mu.Unlock()
		e.Progress(step, pct)
	}
	markDone := func() {
		mu.Lock()
		completed++
		mu.Unlock()
	}

	outcomes := make([]categoryOutcome, len(enabled))
	var wg sync.WaitGroup

	for i, c := range enabled {
		wg.Add(1)
		go func(i int, c models.Category) {
			cctx, cspan := tracing.GetTracer("orchestrator").Start(ctx, "probe."+string(c))
			defer wg.Done()
			defer cspan.End()
			defer func() {
				if r := recover(); r != nil {
					e.log.WithFields(logrus.Fields{
						"test_id":  result.TestID,
						"category": c,
						"panic":    r,
					}).Error("Probe category panicked")
					outcomes[i] = categoryOutcome{
						status: models.ProbeFailed,
						errMsg: fmt.Sprintf("internal error: %v", r),
					}
				}
				markDone()
				report(fmt.Sprintf("Finished %s probe", c))
			}()

			report(fmt.Sprintf("Running %s probe", c))
			categoriesRunTotal.WithLabelValues(string(c)).Inc()

			outcomes[i] = e.runCategory(cctx, c, probers[c], req)
			cspan.SetAttributes(attribute.String("probe.status", string(outcomes[i].status)))
		}(i, c)
	}
	wg.Wait()

	for i, c := range enabled {
		out := outcomes[i]
		switch c {
		case models.CategoryLatency:
			result.LatencyResults = out.latency
		case models.CategoryJitter:
			result.JitterResult = out.jitter
		case models.CategoryPacketLoss:
			result.PacketLossResult = out.loss
		case models.CategoryThroughput:
			result.ThroughputResult = out.tput
		case models.CategoryDNS:
			result.DNSResults = out.dns
		}
		result.SetCategoryStatus(c, out.status, out.errMsg)
		if out.status == models.ProbeFailed {
			categoriesFailedTotal.WithLabelValues(string(c)).Inc()
		}
	}
	result.Finalize()
	span.SetAttributes(attribute.String("test.status", string(result.Status)))

	testsTotal.WithLabelValues(string(result.Status)).Inc()
	testDurationSeconds.Observe(time.Since(start).Seconds())

	e.log.WithFields(logrus.Fields{
		"test_id":  result.TestID,
		"status":   result.Status,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Diagnostic test finished")

	return result, nil
}

func (e *Engine) runCategory(ctx context.Context, c models.Category, p probe.Prober, req models.TestRequest) categoryOutcome {
	if p == nil {
		return categoryOutcome{
			status: models.ProbeFailed,
			errMsg: fmt.Sprintf("no prober configured for category %s", c),
		}
	}

	switch c {
	case models.CategoryLatency:
		return e.runPerTarget(ctx, p, req.TargetHosts)
	case models.CategoryDNS:
		return e.runPerServer(ctx, p, req.DNSServers)
	case models.CategoryJitter, models.CategoryPacketLoss:
		// These probes measure variation against a single reference
		// point; the first configured target serves that role.
		return e.runSingle(ctx, c, p, req.TargetHosts[0])
	case models.CategoryThroughput:
		return e.runSingle(ctx, c, p, "")
	default:
		return categoryOutcome{
			status: models.ProbeFailed,
			errMsg: fmt.Sprintf("unknown category %s", c),
		}
	}
}

// runProbe executes one probe invocation under the retry policy.
func (e *Engine) runProbe(ctx context.Context, c models.Category, p probe.Prober, target string) (models.ProbePayload, error) {
	exec := &retry.Executor{Policy: e.Retry, Sleep: e.Sleep}

	var payload models.ProbePayload
	err := exec.Do(ctx, func() error {
		got, runErr := p.Run(ctx, target)
		if runErr != nil {
			e.log.WithFields(logrus.Fields{
				"category": c,
				"target":   target,
				"error":    runErr.Error(),
			}).Warn("Probe attempt failed")
			return runErr
		}
		payload = got
		return nil
	})
	if err != nil {
		retriesExhaustedTotal.WithLabelValues(string(c)).Inc()
		return nil, err
	}
	return payload, nil
}

// runPerTarget runs the latency probe once per target host, in request
// order. A host that exhausts its retries gets a placeholder entry; the
// category fails only when every host does.
func (e *Engine) runPerTarget(ctx context.Context, p probe.Prober, hosts []string) categoryOutcome {
	out := categoryOutcome{latency: make([]models.LatencyStats, 0, len(hosts))}

	succeeded := 0
	var lastMsg string
	for _, host := range hosts {
		payload, err := e.runProbe(ctx, models.CategoryLatency, p, host)
		if err != nil {
			lastMsg = probe.DescribeFailure(err)
			out.latency = append(out.latency, models.LatencyStats{
				Host:  host,
				Error: lastMsg,
			})
			continue
		}
		stats, ok := payload.(*models.LatencyStats)
		if !ok {
			panic(fmt.Sprintf("latency prober returned %T", payload))
		}
		out.latency = append(out.latency, *stats)
		if stats.Error != "" {
			lastMsg = stats.Error
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		out.status = models.ProbeFailed
		out.errMsg = lastMsg
	} else {
		out.status = models.ProbeSuccess
	}
	return out
}

// runPerServer runs the resolution probe once per DNS server, in request
// order, with the same placeholder semantics as runPerTarget.
func (e *Engine) runPerServer(ctx context.Context, p probe.Prober, servers []string) categoryOutcome {
	out := categoryOutcome{dns: make([]models.ResolutionStats, 0, len(servers))}

	succeeded := 0
	var lastMsg string
	for _, server := range servers {
		payload, err := e.runProbe(ctx, models.CategoryDNS, p, server)
		if err != nil {
			lastMsg = probe.DescribeFailure(err)
			out.dns = append(out.dns, models.ResolutionStats{
				DNSServer: server,
				Error:     lastMsg,
			})
			continue
		}
		stats, ok := payload.(*models.ResolutionStats)
		if !ok {
			panic(fmt.Sprintf("resolution prober returned %T", payload))
		}
		out.dns = append(out.dns, *stats)
		// A resolver that answered no queries reports its condition inline;
		// it does not count toward category success.
		if stats.Error != "" {
			lastMsg = stats.Error
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		out.status = models.ProbeFailed
		out.errMsg = lastMsg
	} else {
		out.status = models.ProbeSuccess
	}
	return out
}

// runSingle runs a probe that executes once per test and, on exhausted
// retries, records a zeroed payload carrying the failure message.
func (e *Engine) runSingle(ctx context.Context, c models.Category, p probe.Prober, target string) categoryOutcome {
	payload, err := e.runProbe(ctx, c, p, target)
	if err != nil {
		msg := probe.DescribeFailure(err)
		out := categoryOutcome{status: models.ProbeFailed, errMsg: msg}
		switch c {
		case models.CategoryJitter:
			out.jitter = &models.JitterStats{Host: target, Error: msg}
		case models.CategoryPacketLoss:
			out.loss = &models.PacketLossStats{Host: target, Error: msg}
		case models.CategoryThroughput:
			out.tput = &models.ThroughputStats{Error: msg}
		}
		return out
	}

	out := categoryOutcome{status: models.ProbeSuccess}
	switch stats := payload.(type) {
	case *models.JitterStats:
		out.jitter = stats
	case *models.PacketLossStats:
		out.loss = stats
	case *models.ThroughputStats:
		out.tput = stats
	default:
		panic(fmt.Sprintf("%s prober returned %T", c, payload))
	}
	if msg := payload.InlineError(); msg != "" {
		out.status = models.ProbeFailed
		out.errMsg = msg
	}
	return out
}
