package warden

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// failureGuard is the single place where delivery and transform failures are
// caught. Failures are logged to a local diagnostic channel and discarded:
// the caller that originally invoked Info/Error/Audit never observes them,
// and no failure is left unobserved. The diagnostic logger is never fed
// through the masker, so a masking failure cannot recurse into itself.
type failureGuard struct {
	diag     *zap.Logger
	metrics  *Metrics
	failures atomic.Uint64
}

func newFailureGuard(diag *zap.Logger, metrics *Metrics) *failureGuard {
	if diag == nil {
		diag = zap.NewNop()
	}
	return &failureGuard{diag: diag, metrics: metrics}
}

// Do runs fn and terminates every failure path: an error return and a panic
// are both recorded and swallowed.
func (g *failureGuard) Do(op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			g.failures.Add(1)
			g.metrics.Inc(MetricDeliveryFailures)
			g.diag.Error("warden delivery panic recovered",
				zap.String("op", op),
				zap.Any("panic", r))
		}
	}()

	if err := fn(); err != nil {
		g.failures.Add(1)
		g.metrics.Inc(MetricDeliveryFailures)
		g.diag.Warn("warden delivery failed",
			zap.String("op", op),
			zap.Error(err))
	}
}

func (g *failureGuard) Failures() uint64 {
	if g == nil {
		return 0
	}
	return g.failures.Load()
}
