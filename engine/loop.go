package engine

import (
	"context"
	"time"

	"github.com/projecteru2/core/log"
)

// Run drives the reconcile loop until ctx is cancelled. Cycle errors are
// logged and never fatal; the loop sleeps the poll interval only after a
// cycle fully completes, so the effective cadence is interval + cycle
// duration rather than a fixed wall-clock tick.
func (e *Engine) Run(ctx context.Context) error {
	logger := log.WithFunc("engine.Run")
	logger.Infof(ctx, "starting validator updater: VMM %s, polling %s every %s",
		e.conf.VMMURL, e.conf.ComposeAPIURL, e.conf.PollInterval)

	for {
		if err := e.RunCycle(ctx); err != nil {
			logger.Errorf(ctx, err, "reconcile cycle failed")
		}
		select {
		case <-ctx.Done():
			logger.Infof(ctx, "shutting down: %v", context.Cause(ctx))
			return nil
		case <-time.After(e.conf.PollInterval):
		}
	}
}
