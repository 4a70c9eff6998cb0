package config

import (
	"time"

	coretypes "github.com/projecteru2/core/types"
)

// Default endpoints and identity of the managed VM. The updater owns
// exactly one VM under one control loop; VMName is how it finds it in the
// VMM's status output.
const (
	DefaultVMMURL        = "http://localhost:10300"
	DefaultComposeAPIURL = "https://api.platform.network/config/compose/validator_vm"
	DefaultVMName        = "validator_vm"
	DefaultPollInterval  = 5 * time.Second
)

// Config holds global updater configuration.
type Config struct {
	// VMMURL is the VMM base URL the updater itself talks to
	// (env VMM_URL; distinct from the in-guest DSTACK_VMM_URL).
	VMMURL string `json:"vmm_url" mapstructure:"vmm_url"`
	// ComposeAPIURL is the desired-state endpoint polled every cycle.
	ComposeAPIURL string `json:"compose_api_url" mapstructure:"compose_api_url"`
	// VMName identifies the managed VM in VMM status output.
	VMName string `json:"vm_name" mapstructure:"vm_name"`
	// PlatformConfigPath is the persisted local settings file.
	PlatformConfigPath string `json:"platform_config_path" mapstructure:"platform_config_path"`
	// PollInterval is the sleep between completed reconcile cycles.
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		VMMURL:             DefaultVMMURL,
		ComposeAPIURL:      DefaultComposeAPIURL,
		VMName:             DefaultVMName,
		PlatformConfigPath: "/etc/platform-validator/config.json",
		PollInterval:       DefaultPollInterval,
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}
