package models

// ProbePayload is implemented by the per-category stats types so probes
// can be driven behind one uniform interface while keeping their payloads
// fully typed.
type ProbePayload interface {
	ProbeCategory() Category

	// InlineError returns the payload's structural error marker, if any.
	// A non-empty marker means the probe returned but reported its own
	// failure (e.g. every DNS query failed); the category is marked
	// failed even though no transport error occurred.
	InlineError() string
}

func (s *LatencyStats) ProbeCategory() Category    { return CategoryLatency }
func (s *JitterStats) ProbeCategory() Category     { return CategoryJitter }
func (s *PacketLossStats) ProbeCategory() Category { return CategoryPacketLoss }
func (s *ThroughputStats) ProbeCategory() Category { return CategoryThroughput }
func (s *ResolutionStats) ProbeCategory() Category { return CategoryDNS }

func (s *LatencyStats) InlineError() string    { return s.Error }
func (s *JitterStats) InlineError() string     { return s.Error }
func (s *PacketLossStats) InlineError() string { return s.Error }
func (s *ThroughputStats) InlineError() string { return s.Error }
func (s *ResolutionStats) InlineError() string { return s.Error }
