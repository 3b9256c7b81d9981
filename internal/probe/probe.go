// Package probe implements the individual network measurement probes.
// Each probe measures one network property against one target and
// returns a typed payload or a classified Failure; expected operational
// failures are values, never panics.
package probe

import (
	"context"

	"github.com/network-diagnostics-platform/internal/models"
)

// Prober is the uniform contract for all probe categories. Run blocks on
// network I/O; the orchestration engine is responsible for keeping it off
// the critical path. Implementations are stateless across runs; the
// engine constructs fresh probers per test.
type Prober interface {
	Category() models.Category

	// Run measures one target. The returned payload is the category's
	// stats type; the error, when non-nil, is a *Failure describing an
	// operational failure.
	Run(ctx context.Context, target string) (models.ProbePayload, error)
}
