// diagnose runs one diagnostic test from the command line and prints a
// colored report, without requiring the daemon, a database or NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/orchestrator"
	"github.com/network-diagnostics-platform/internal/probe"
	"github.com/network-diagnostics-platform/internal/recommend"
	"github.com/network-diagnostics-platform/internal/retry"
	"github.com/network-diagnostics-platform/internal/validation"
)

func main() {
	var (
		targets     = flag.String("targets", "8.8.8.8,1.1.1.1", "Comma-separated target hosts")
		dnsServers  = flag.String("dns-servers", "8.8.8.8,1.1.1.1", "Comma-separated DNS servers")
		packetCount = flag.Int("packets", 100, "Packet count for the packet loss probe (10-1000)")
		servers     = flag.String("servers", "", "Measurement servers as host|location|base-url, comma-separated")
		echoPort    = flag.String("echo-port", "443", "TCP port for echo round trips")
		timeout     = flag.Duration("timeout", 10*time.Minute, "Overall test timeout")
		maxRetries  = flag.Int("retries", 2, "Max retries per probe")
		jsonOut     = flag.String("json", "", "Write the raw result JSON to this file")
		verbose     = flag.Bool("verbose", false, "Log probe attempts")

		noLatency    = flag.Bool("no-latency", false, "Skip the latency probe")
		noJitter     = flag.Bool("no-jitter", false, "Skip the jitter probe")
		noPacketLoss = flag.Bool("no-packet-loss", false, "Skip the packet loss probe")
		noThroughput = flag.Bool("no-throughput", false, "Skip the throughput probe")
		noDNS        = flag.Bool("no-dns", false, "Skip the DNS resolution probe")
	)
	flag.Parse()

	req := models.TestRequest{
		TargetHosts:   splitList(*targets),
		DNSServers:    splitList(*dnsServers),
		PacketCount:   *packetCount,
		RunLatency:    !*noLatency,
		RunJitter:     !*noJitter,
		RunPacketLoss: !*noPacketLoss,
		RunThroughput: !*noThroughput && *servers != "",
		RunDNS:        !*noDNS,
	}
	if !*noThroughput && *servers == "" {
		fmt.Println("No measurement servers configured, skipping throughput (use -servers)")
	}
	if err := req.Validate(); err != nil {
		color.Red("Invalid request: %v", err)
		os.Exit(1)
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetOutput(io.Discard)
	}

	settings := orchestrator.DefaultProbeSettings(parseServers(*servers))
	settings.EchoPort = *echoPort

	engine := orchestrator.NewEngine(
		orchestrator.NewProbeFactory(settings, log),
		retry.Policy{MaxRetries: *maxRetries, BaseDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 30 * time.Second},
		log,
	)
	engine.Progress = func(step string, percent float64) {
		fmt.Printf("  [%3.0f%%] %s\n", percent, step)
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Println("=== Network Diagnostics ===")
	fmt.Printf("Targets: %s\n\n", strings.Join(req.TargetHosts, ", "))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := engine.RunTest(ctx, req)
	if err != nil {
		color.Red("Test failed to start: %v", err)
		os.Exit(1)
	}

	fmt.Println()
	printResult(result)

	report := validation.NewValidator(log).Validate(req, result)
	if !report.IsComplete {
		fmt.Println()
		color.Yellow("Result is incomplete:")
		for _, msg := range report.Errors {
			color.Yellow("  - %s", msg)
		}
	}

	recs, _ := recommend.NewRuleSynthesizer(recommend.DefaultThresholds(), log).Synthesize(ctx, result)
	if len(recs) > 0 {
		fmt.Println()
		header.Println("Recommendations")
		for _, rec := range recs {
			switch rec.Severity {
			case recommend.SeverityCritical:
				color.Red("  [critical] %s", rec.Text)
			case recommend.SeverityWarning:
				color.Yellow("  [warning]  %s", rec.Text)
			default:
				fmt.Printf("  [info]     %s\n", rec.Text)
			}
		}
	}

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, result); err != nil {
			color.Red("Failed to write %s: %v", *jsonOut, err)
			os.Exit(1)
		}
		fmt.Printf("\nResult written to %s\n", *jsonOut)
	}

	if result.Status == models.StatusFailed {
		os.Exit(1)
	}
}

func printResult(result *models.TestResult) {
	header := color.New(color.FgCyan, color.Bold)
	header.Printf("Test %s: ", result.TestID)
	switch result.Status {
	case models.StatusCompleted:
		color.Green("%s", result.Status)
	case models.StatusPartial:
		color.Yellow("%s", result.Status)
	default:
		color.Red("%s", result.Status)
	}
	fmt.Println()

	for _, stats := range result.LatencyResults {
		if stats.Error != "" {
			color.Red("Latency %-16s %s", stats.Host, stats.Error)
			continue
		}
		fmt.Printf("Latency %-16s min/avg/max %.2f/%.2f/%.2f ms, stddev %.2f ms (%d/%d packets)\n",
			stats.Host, stats.MinMs, stats.AvgMs, stats.MaxMs, stats.StddevMs,
			stats.PacketsReceived, stats.PacketsSent)
	}

	if j := result.JitterResult; j != nil {
		if j.Error != "" {
			color.Red("Jitter  %-16s %s", j.Host, j.Error)
		} else {
			fmt.Printf("Jitter  %-16s avg %.2f ms, max %.2f ms (%d/%d samples)\n",
				j.Host, j.AvgJitterMs, j.MaxJitterMs, j.SuccessfulMeasurements, j.TotalMeasurements)
		}
	}

	if p := result.PacketLossResult; p != nil {
		if p.Error != "" {
			color.Red("Loss    %-16s %s", p.Host, p.Error)
		} else {
			line := fmt.Sprintf("Loss    %-16s %.1f%% lost (%d/%d received)",
				p.Host, p.LossPercentage, p.PacketsReceived, p.PacketsSent)
			if p.LossPercentage > 0 {
				color.Yellow("%s", line)
			} else {
				fmt.Println(line)
			}
		}
	}

	if t := result.ThroughputResult; t != nil {
		if t.Error != "" {
			color.Red("Speed   %s", t.Error)
		} else {
			fmt.Printf("Speed   %.2f Mbps down, %.2f Mbps up via %s (%s), ping %.2f ms\n",
				t.DownloadMbps, t.UploadMbps, t.ServerHost, t.ServerLocation, t.PingMs)
		}
	}

	for _, stats := range result.DNSResults {
		switch {
		case stats.Error != "" && stats.SuccessfulQueries == 0:
			color.Red("DNS     %-16s %s", stats.DNSServer, stats.Error)
		default:
			fmt.Printf("DNS     %-16s avg %.2f ms (%d/%d queries resolved)\n",
				stats.DNSServer, stats.AvgResolutionMs, stats.SuccessfulQueries, stats.QueriesTested)
		}
	}

	for c, msg := range result.Errors {
		color.Red("Failed  %-16s %s", c, msg)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseServers(raw string) []probe.MeasurementServer {
	var servers []probe.MeasurementServer
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), "|")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			continue
		}
		servers = append(servers, probe.MeasurementServer{Host: parts[0], Location: parts[1], BaseURL: parts[2]})
	}
	return servers
}

func writeJSON(path string, result *models.TestResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
