package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/dstack-validator/updater/envelope"
	"github.com/dstack-validator/updater/manifest"
	"github.com/dstack-validator/updater/types"
)

// createVM provisions a new VM from the cycle plan: fetch the env
// encryption key for the app id, seal the env list, assemble the create
// request, cross-check the VMM's own hash, and create.
func (e *Engine) createVM(ctx context.Context, p plan) (string, error) {
	logger := log.WithFunc("engine.createVM")
	appID := manifest.TruncateAppID(p.hash)
	logger.Infof(ctx, "creating VM %s (image %s, app id %s)", p.vmName, p.params.Image, appID)

	pubkey, err := e.vmm.AppEnvEncryptPubKey(ctx, appID)
	if err != nil {
		return "", fmt.Errorf("get env encryption key for app %s: %w", appID, err)
	}

	envJSON, err := json.Marshal(p.envVars)
	if err != nil {
		return "", fmt.Errorf("serialize env vars: %w", err)
	}
	encryptedEnv, err := envelope.Encrypt(string(envJSON), pubkey)
	if err != nil {
		return "", fmt.Errorf("encrypt env for app %s: %w", appID, err)
	}

	req := &types.CreateVMRequest{
		Name:         p.vmName,
		Image:        p.params.Image,
		ComposeFile:  p.serialized,
		VCPU:         p.params.VCPU,
		Memory:       p.params.Memory,
		DiskSize:     p.params.DiskSize,
		UserConfig:   p.params.UserConfig,
		Ports:        p.params.Ports,
		EncryptedEnv: encryptedEnv,
		Hugepages:    p.params.Hugepages,
		PinNUMA:      p.params.PinNUMA,
		Stopped:      p.params.Stopped,
	}

	// Cross-check against the VMM's hash of the same request. The result
	// is logged, not used to gate creation: the VMM recomputes and stores
	// its own app id regardless of what we derived locally.
	vmmHash, err := e.vmm.ComposeHash(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get VMM compose hash: %w", err)
	}
	if manifest.TruncateAppID(vmmHash) != appID {
		logger.Warnf(ctx, "VMM compose hash %s differs from local %s", manifest.TruncateAppID(vmmHash), appID)
	} else {
		logger.Infof(ctx, "VMM compose hash confirms %s", appID)
	}

	vmID, err := e.vmm.CreateVM(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create VM %s: %w", p.vmName, err)
	}
	logger.Infof(ctx, "VM created: %s", vmID)
	return vmID, nil
}
