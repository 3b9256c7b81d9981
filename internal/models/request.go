package models

import (
	"fmt"
)

// Category identifies one probe category. It is the unit of status
// tracking for a diagnostic test run.
type Category string

const (
	CategoryLatency    Category = "latency"
	CategoryJitter     Category = "jitter"
	CategoryPacketLoss Category = "packet_loss"
	CategoryThroughput Category = "throughput"
	CategoryDNS        Category = "dns"
)

// AllCategories returns the probe categories in their canonical run order.
func AllCategories() []Category {
	return []Category{
		CategoryLatency,
		CategoryJitter,
		CategoryPacketLoss,
		CategoryThroughput,
		CategoryDNS,
	}
}

// Packet count bounds for the packet loss probe.
const (
	MinPacketCount = 10
	MaxPacketCount = 1000
)

// TestRequest is the immutable input to one diagnostic test run.
//
// An invalid request (empty target list, no category enabled) is a caller
// programming error and is rejected by Validate before orchestration
// starts; it never produces a failed TestResult.
type TestRequest struct {
	// TargetHosts are the hosts probed for latency; the first entry is
	// also the target for the jitter and packet loss probes.
	TargetHosts []string `json:"target_hosts"`

	// DNSServers are the resolvers exercised by the name resolution probe.
	DNSServers []string `json:"dns_servers"`

	// PacketCount is the number of echo requests sent by the packet loss
	// probe. Bounded to [10, 1000].
	PacketCount int `json:"packet_count"`

	// Category selection flags. At least one must be true.
	RunLatency    bool `json:"run_latency"`
	RunJitter     bool `json:"run_jitter"`
	RunPacketLoss bool `json:"run_packet_loss"`
	RunThroughput bool `json:"run_throughput"`
	RunDNS        bool `json:"run_dns"`
}

// DefaultTestRequest returns a request with all categories enabled and
// well-known public targets.
func DefaultTestRequest() TestRequest {
	return TestRequest{
		TargetHosts:   []string{"8.8.8.8", "1.1.1.1"},
		DNSServers:    []string{"8.8.8.8", "1.1.1.1"},
		PacketCount:   100,
		RunLatency:    true,
		RunJitter:     true,
		RunPacketLoss: true,
		RunThroughput: true,
		RunDNS:        true,
	}
}

// Validate checks the request preconditions.
func (r *TestRequest) Validate() error {
	if len(r.TargetHosts) == 0 {
		return fmt.Errorf("target_hosts must not be empty")
	}
	if len(r.DNSServers) == 0 {
		return fmt.Errorf("dns_servers must not be empty")
	}
	for _, h := range r.TargetHosts {
		if h == "" {
			return fmt.Errorf("target_hosts must not contain empty entries")
		}
	}
	for _, s := range r.DNSServers {
		if s == "" {
			return fmt.Errorf("dns_servers must not contain empty entries")
		}
	}
	if r.PacketCount < MinPacketCount || r.PacketCount > MaxPacketCount {
		return fmt.Errorf("packet_count must be between %d and %d, got %d",
			MinPacketCount, MaxPacketCount, r.PacketCount)
	}
	if len(r.EnabledCategories()) == 0 {
		return fmt.Errorf("at least one probe category must be enabled")
	}
	return nil
}

// Enabled reports whether the given category is selected by this request.
func (r *TestRequest) Enabled(c Category) bool {
	switch c {
	case CategoryLatency:
		return r.RunLatency
	case CategoryJitter:
		return r.RunJitter
	case CategoryPacketLoss:
		return r.RunPacketLoss
	case CategoryThroughput:
		return r.RunThroughput
	case CategoryDNS:
		return r.RunDNS
	default:
		return false
	}
}

// EnabledCategories returns the selected categories in canonical order.
func (r *TestRequest) EnabledCategories() []Category {
	var enabled []Category
	for _, c := range AllCategories() {
		if r.Enabled(c) {
			enabled = append(enabled, c)
		}
	}
	return enabled
}
