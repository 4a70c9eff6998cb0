// Package manifest derives the canonical app manifest, the allowed-env
// whitelist, and the compose hash from a desired compose config. Everything
// here is a pure function of its inputs: the reconcile engine calls it once
// per cycle and compares the result against the VM the VMM reports.
package manifest

import (
	"slices"

	"github.com/dstack-validator/updater/types"
)

// FixedEnvKeys are always part of the allowed-env whitelist regardless of
// what the compose API asks for. The compose API computes its reference
// hash with these present, so dropping one would mismatch every VM.
var FixedEnvKeys = []string{
	"DSTACK_VMM_URL",
	"HOTKEY_PASSPHRASE",
	"VALIDATOR_BASE_URL",
}

// AllowedEnvs unions the provisioning env keys, the fixed key set, and the
// compose-level required keys, deduplicates, and sorts ascending. The
// ordering is canonical: the result is embedded in the manifest and hashed.
func AllowedEnvs(compose *types.ComposeConfig) []string {
	keys := make([]string, 0, len(compose.Provisioning.EnvKeys)+len(FixedEnvKeys)+len(compose.RequiredEnv))
	keys = append(keys, compose.Provisioning.EnvKeys...)
	keys = append(keys, FixedEnvKeys...)
	keys = append(keys, compose.RequiredEnv...)

	slices.Sort(keys)
	return slices.Compact(keys)
}

// RequiredEnvKeys returns the keys that must have a resolvable value before
// any VM action is taken: the compose required_env plus provisioning
// env_keys, deduplicated (order is not significant here).
func RequiredEnvKeys(compose *types.ComposeConfig) []string {
	keys := append([]string{}, compose.RequiredEnv...)
	for _, k := range compose.Provisioning.EnvKeys {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// ResolveVMName picks the VM name: the VM-parameter name when set, else the
// compose vm_type.
func ResolveVMName(compose *types.ComposeConfig) string {
	if name := compose.Provisioning.VMParameters.Name; name != "" {
		return name
	}
	return compose.VMType
}

// Build assembles the app manifest from the compose content, the API's
// manifest defaults, the resolved VM name, and the allowed-env whitelist.
func Build(compose *types.ComposeConfig, vmName string, allowedEnvs []string) types.AppManifest {
	defaults := compose.Provisioning.ManifestDefaults
	name := defaults.Name
	if name == "" {
		name = vmName
	}
	return types.AppManifest{
		ManifestVersion:         defaults.ManifestVersion,
		Name:                    name,
		Runner:                  defaults.Runner,
		DockerComposeFile:       compose.ComposeContent,
		KMSEnabled:              defaults.KMSEnabled,
		GatewayEnabled:          defaults.GatewayEnabled,
		LocalKeyProviderEnabled: defaults.LocalKeyProviderEnabled,
		KeyProviderID:           defaults.KeyProviderID,
		PublicLogs:              defaults.PublicLogs,
		PublicSysinfo:           defaults.PublicSysinfo,
		PublicTcbinfo:           defaults.PublicTcbinfo,
		AllowedEnvs:             allowedEnvs,
		NoInstanceID:            defaults.NoInstanceID,
		SecureTime:              defaults.SecureTime,
	}
}
