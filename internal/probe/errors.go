package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/network-diagnostics-platform/internal/models"
)

// Failure is the typed error returned by probes for expected operational
// failures. Language-level panics are reserved for programming errors.
type Failure struct {
	Kind    models.ErrorKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(kind models.ErrorKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FailureFrom classifies err and wraps it in a Failure. A Failure passes
// through unchanged.
func FailureFrom(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: Classify(err), Message: err.Error()}
}

// Classify maps an error to its operational kind. Permission errors are
// distinguished so the surfaced message can point at missing privileges;
// everything unrecognized is unknown and treated as retryable.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorKindUnknown
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	if errors.Is(err, os.ErrPermission) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EACCES) {
		return models.ErrorKindPermission
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorKindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return models.ErrorKindUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.ErrorKindUnreachable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "operation not permitted"):
		return models.ErrorKindPermission
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"):
		return models.ErrorKindUnreachable
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"):
		return models.ErrorKindTimeout
	case strings.Contains(msg, "invalid"),
		strings.Contains(msg, "missing port"):
		return models.ErrorKindConfiguration
	}

	return models.ErrorKindUnknown
}

// DescribeFailure renders a failure message for the per-category error
// map. Permission failures get an explicit hint since they are the most
// common operator-fixable condition.
func DescribeFailure(err error) string {
	f := FailureFrom(err)
	if f.Kind == models.ErrorKindPermission {
		return fmt.Sprintf("%s (requires elevated privileges)", f.Message)
	}
	return f.Message
}
