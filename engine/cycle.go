package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/projecteru2/core/log"
	"golang.org/x/sync/errgroup"

	"github.com/dstack-validator/updater/manifest"
	"github.com/dstack-validator/updater/platform"
	"github.com/dstack-validator/updater/types"
)

// plan is everything a cycle derives from desired state before deciding.
type plan struct {
	desired    *types.ComposeConfig
	params     types.VMParameters
	vmName     string
	serialized string
	hash       string
	envVars    []types.EnvVar
}

// RunCycle executes one reconcile cycle. On success the engine State holds
// the hash and VM id that now match reality; on any error the State is left
// untouched and the caller logs and waits for the next tick.
func (e *Engine) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()[:8]
	logger := log.WithFunc("engine.RunCycle").WithField("cycle", cycleID)

	// Desired state and observed state are independent and both read-only;
	// fetch them concurrently. Everything that can mutate the VMM happens
	// after both have succeeded.
	var desired *types.ComposeConfig
	var obs Observation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := e.api.Fetch(gctx)
		if err != nil {
			return fmt.Errorf("fetch compose config: %w", err)
		}
		desired = cfg
		return nil
	})
	g.Go(func() error {
		o, err := e.observe(gctx)
		if err != nil {
			return err
		}
		obs = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p, err := e.buildPlan(ctx, desired, logger)
	if err != nil {
		return err
	}

	firstRun := e.state.CurrentHash == ""
	decision := Decide(obs, p.hash, firstRun)
	logger.Infof(ctx, "decision: %s (%s)", decision.Action, decision.Reason)

	switch decision.Action {
	case ActionKeep:
		e.state = State{CurrentHash: p.hash, VMID: obs.VM.ID}
		return nil

	case ActionRecreate:
		if err := e.killAndRemove(ctx, obs.VM.ID); err != nil {
			return err
		}

	case ActionCreate:
		// no existing VM to tear down
	}

	vmID, err := e.createVM(ctx, p)
	if err != nil {
		return err
	}
	logger.Infof(ctx, "VM %s now runs compose hash %s", vmID, manifest.TruncateAppID(p.hash))
	e.state = State{CurrentHash: p.hash, VMID: vmID}
	return nil
}

// buildPlan validates prerequisites and derives the manifest, hash, and env
// list for this cycle. Validation failures return *ValidationError and no
// mutating call is ever issued for the cycle.
func (e *Engine) buildPlan(ctx context.Context, desired *types.ComposeConfig, logger *log.Fields) (plan, error) {
	platformCfg := e.loadPlatformConfig(ctx)
	envVars := platform.BuildEnvVars(platformCfg)

	if err := validateRequiredEnv(desired, envVars); err != nil {
		return plan{}, err
	}

	params := desired.Provisioning.VMParameters
	if err := params.Validate(); err != nil {
		return plan{}, &ValidationError{Reason: err.Error()}
	}
	logger.Infof(ctx, "VM spec: vm_type=%s image=%s vcpu=%d memory=%s disk=%s",
		desired.VMType, params.Image, params.VCPU,
		units.BytesSize(float64(params.Memory)*units.MiB),
		units.BytesSize(float64(params.DiskSize)*units.GiB))

	vmName := manifest.ResolveVMName(desired)
	allowed := manifest.AllowedEnvs(desired)
	logger.Infof(ctx, "allowed envs (%d): %s", len(allowed), strings.Join(allowed, ","))

	appManifest := manifest.Build(desired, vmName, allowed)
	serialized, err := json.Marshal(appManifest)
	if err != nil {
		return plan{}, fmt.Errorf("serialize app manifest: %w", err)
	}

	hash := manifest.ComputeHash(string(serialized), params.Image)
	logger.Infof(ctx, "computed compose hash (image %s): %s", params.Image, hash)

	return plan{
		desired:    desired,
		params:     params,
		vmName:     vmName,
		serialized: string(serialized),
		hash:       hash,
		envVars:    envVars,
	}, nil
}

// observe locates the managed VM in the VMM's status output, matching on
// name or reported app id.
func (e *Engine) observe(ctx context.Context) (Observation, error) {
	resp, err := e.vmm.Status(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("query VM status: %w", err)
	}
	for _, vm := range resp.VMs {
		if (vm.Name == e.conf.VMName || vm.AppID == e.conf.VMName) && vm.ID != "" {
			if vm.AppID == "" {
				log.WithFunc("engine.observe").Warnf(ctx,
					"VM %s matches %q but reports no app id: %s", vm.ID, e.conf.VMName, vm.Raw)
			}
			return Observation{Found: true, VM: vm}, nil
		}
	}
	return Observation{}, nil
}

// loadPlatformConfig reads the persisted settings, falling back to the
// defaults when the file is missing or unreadable. Required-env validation
// later decides whether the fallback is actually viable.
func (e *Engine) loadPlatformConfig(ctx context.Context) platform.Config {
	cfg, err := e.platform.Load(ctx)
	if err != nil {
		log.WithFunc("engine.loadPlatformConfig").Warnf(ctx, "load platform config: %v, using defaults", err)
		cfg = platform.Config{}
		cfg.Init()
	}
	return cfg
}

// validateRequiredEnv checks that every key the compose API requires has a
// resolvable value in the env list built from the platform config.
func validateRequiredEnv(desired *types.ComposeConfig, envVars []types.EnvVar) error {
	required := manifest.RequiredEnvKeys(desired)
	if len(required) == 0 {
		return nil
	}

	have := make(map[string]bool, len(envVars))
	for _, env := range envVars {
		have[env.Key] = true
	}

	var missing []string
	for _, key := range required {
		if !have[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Reason: fmt.Sprintf(
			"missing values for required environment keys: %s (set them with 'validator-updater config set-env <key> <value>')",
			strings.Join(missing, ", "))}
	}
	return nil
}
