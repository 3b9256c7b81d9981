package probe

import (
	"context"
	"errors"
	"net"
	"time"
)

// Pinger sends one echo request and reports the round trip time.
// Implementations must be safe for sequential reuse; the probes never
// call Ping concurrently on the same Pinger.
type Pinger interface {
	// Ping returns the observed round trip time. ok is false with a nil
	// error when no response arrived within timeout; a non-nil error
	// indicates a transport-level failure (e.g. missing privileges).
	Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, bool, error)
}

// TCPPinger measures round trip time via a TCP handshake. Raw ICMP needs
// elevated privileges on most systems; a connect to a well-known port
// gives an unprivileged RTT estimate that tracks ICMP closely for the
// public resolvers used as default targets.
type TCPPinger struct {
	// Port to connect to; defaults to 443.
	Port string

	// Dialer overrides the dial function, used by tests.
	Dialer func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewTCPPinger returns a TCPPinger for the given port ("" means 443).
func NewTCPPinger(port string) *TCPPinger {
	if port == "" {
		port = "443"
	}
	return &TCPPinger{Port: port}
}

func (p *TCPPinger) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, bool, error) {
	dial := p.Dialer
	if dial == nil {
		d := &net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := dial(dialCtx, "tcp", net.JoinHostPort(host, p.Port))
	rtt := time.Since(start)
	if err != nil {
		// A timed-out handshake is a lost echo, not a transport error.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, false, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, false, nil
		}
		return 0, false, err
	}
	conn.Close()
	return rtt, true, nil
}

// durationMs converts a round trip time to milliseconds at full
// precision.
func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
