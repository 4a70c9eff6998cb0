// Package engine runs the reconcile loop that keeps the managed validator
// VM synchronized with the compose config served by the platform API. One
// cycle fetches desired state, observes what the VMM is actually running,
// decides keep/create/recreate, and acts. The engine is the only writer of
// its own State; collaborators are injected as interfaces so cycles can run
// against stubs in tests.
package engine

import (
	"context"
	"time"

	"github.com/dstack-validator/updater/config"
	"github.com/dstack-validator/updater/platform"
	"github.com/dstack-validator/updater/types"
)

// Timing for the kill-and-remove sequence. StopVM gets a hard deadline; a
// breach is downgraded to a warning because removal is what actually
// reclaims the VM.
const (
	StopTimeout      = 60 * time.Second
	stopSettleDelay  = 5 * time.Second
	removeGraceDelay = 2 * time.Second
)

// DefaultRemoveRetry is the removal retry policy: fixed delay, bounded
// attempts, final failure aborts the cycle.
var DefaultRemoveRetry = RetryPolicy{Attempts: 3, Delay: 3 * time.Second}

// ComposeAPI fetches the desired compose config.
type ComposeAPI interface {
	Fetch(ctx context.Context) (*types.ComposeConfig, error)
}

// VMM is the slice of the VMM client the engine drives.
type VMM interface {
	Status(ctx context.Context) (*types.StatusResponse, error)
	StopVM(ctx context.Context, id string) error
	RemoveVM(ctx context.Context, id string) error
	CreateVM(ctx context.Context, req *types.CreateVMRequest) (string, error)
	AppEnvEncryptPubKey(ctx context.Context, appID string) (string, error)
	ComposeHash(ctx context.Context, req *types.CreateVMRequest) (string, error)
}

// PlatformStore supplies the persisted local settings snapshot.
type PlatformStore interface {
	Load(ctx context.Context) (platform.Config, error)
}

// State is what the engine remembers across cycles. It lives in memory
// only: after a restart CurrentHash is empty, which is the first-run signal
// that lets the engine adopt a matching VM instead of churning it.
type State struct {
	CurrentHash string
	VMID        string
}

// RetryPolicy bounds the RemoveVm retry loop.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// SleepFunc is the clock abstraction for grace periods and retry delays;
// tests swap it out so retry sequences run without real time passing.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Engine owns the reconcile loop and its State.
type Engine struct {
	conf     *config.Config
	api      ComposeAPI
	vmm      VMM
	platform PlatformStore

	state State

	sleep       SleepFunc
	stopTimeout time.Duration
	removeRetry RetryPolicy
}

// New creates an Engine with the default timing policy and empty State.
func New(conf *config.Config, api ComposeAPI, vm VMM, store PlatformStore) *Engine {
	return &Engine{
		conf:        conf,
		api:         api,
		vmm:         vm,
		platform:    store,
		sleep:       sleepCtx,
		stopTimeout: StopTimeout,
		removeRetry: DefaultRemoveRetry,
	}
}

// State returns the engine's current state snapshot.
func (e *Engine) State() State {
	return e.state
}

// ValidationError marks a cycle aborted before any mutating VM action:
// missing required env values or an invalid hardware spec.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
