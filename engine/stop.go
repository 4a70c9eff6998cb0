package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/core/log"
)

// StopResult is the outcome of the best-effort stop that precedes removal.
// A failed or timed-out stop does not abort the teardown: the VMM can
// remove a VM it failed to stop gracefully.
type StopResult struct {
	Stopped bool
	Reason  string
}

// stopVM issues StopVm under the stop deadline and waits for the guest to
// settle after a successful ack.
func (e *Engine) stopVM(ctx context.Context, id string) StopResult {
	stopCtx, cancel := context.WithTimeout(ctx, e.stopTimeout)
	defer cancel()

	if err := e.vmm.StopVM(stopCtx, id); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return StopResult{Reason: fmt.Sprintf("timed out after %s", e.stopTimeout)}
		}
		return StopResult{Reason: err.Error()}
	}
	// The VMM acks before the guest is down; give it a moment.
	_ = e.sleep(ctx, stopSettleDelay)
	return StopResult{Stopped: true}
}

// killAndRemove tears down the existing VM: best-effort stop, a short
// grace period, then removal under the retry policy. Only a final removal
// failure propagates; the VM is then left stopped-but-not-removed and the
// next cycle re-evaluates it.
func (e *Engine) killAndRemove(ctx context.Context, id string) error {
	logger := log.WithFunc("engine.killAndRemove")
	logger.Infof(ctx, "tearing down VM %s", id)

	if res := e.stopVM(ctx, id); !res.Stopped {
		logger.Warnf(ctx, "stop VM %s: %s, removing anyway", id, res.Reason)
	}
	if err := e.sleep(ctx, removeGraceDelay); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= e.removeRetry.Attempts; attempt++ {
		if lastErr = e.vmm.RemoveVM(ctx, id); lastErr == nil {
			logger.Infof(ctx, "VM %s removed", id)
			return nil
		}
		if attempt < e.removeRetry.Attempts {
			logger.Warnf(ctx, "remove VM %s (attempt %d/%d): %v, retrying",
				id, attempt, e.removeRetry.Attempts, lastErr)
			if err := e.sleep(ctx, e.removeRetry.Delay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("remove VM %s after %d attempts: %w", id, e.removeRetry.Attempts, lastErr)
}
