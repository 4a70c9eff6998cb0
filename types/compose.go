package types

import (
	"encoding/json"
	"fmt"
)

// ComposeConfig is the desired VM configuration fetched from the compose API.
// A fresh snapshot is fetched every reconcile cycle; it is never cached.
type ComposeConfig struct {
	VMType         string             `json:"vm_type"`
	ComposeContent string             `json:"compose_content"`
	Description    string             `json:"description,omitempty"`
	UpdatedAt      string             `json:"updated_at"`
	RequiredEnv    []string           `json:"required_env"`
	Provisioning   ProvisioningConfig `json:"provisioning"`
}

// UnmarshalJSON applies the provisioning defaults when the API omits the
// provisioning section entirely.
func (c *ComposeConfig) UnmarshalJSON(data []byte) error {
	type alias ComposeConfig
	def := alias{Provisioning: defaultProvisioningConfig()}
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*c = ComposeConfig(def)
	return nil
}

func defaultProvisioningConfig() ProvisioningConfig {
	return ProvisioningConfig{
		ManifestDefaults: ManifestDefaults{
			ManifestVersion: 2,
			Name:            "validator_vm",
			Runner:          "docker-compose",
			KMSEnabled:      true,
			GatewayEnabled:  true,
			PublicLogs:      true,
			PublicSysinfo:   true,
			PublicTcbinfo:   true,
		},
		VMParameters: VMParameters{
			Name:     "validator_vm",
			Image:    "dstack-0.5.2",
			VCPU:     16,
			Memory:   16384,
			DiskSize: 200,
		},
	}
}

// ProvisioningConfig carries the provisioning section of a compose config.
type ProvisioningConfig struct {
	EnvKeys          []string         `json:"env_keys"`
	ManifestDefaults ManifestDefaults `json:"manifest_defaults"`
	VMParameters     VMParameters     `json:"vm_parameters"`
}

// UnmarshalJSON starts from the documented defaults so a partial or absent
// manifest_defaults/vm_parameters section still yields a bootable spec;
// fields the API does send override the defaults.
func (p *ProvisioningConfig) UnmarshalJSON(data []byte) error {
	type alias ProvisioningConfig
	def := alias(defaultProvisioningConfig())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*p = ProvisioningConfig(def)
	return nil
}

// ManifestDefaults holds the app manifest fields the compose API controls.
// Field names feed directly into the manifest that is hashed, so renaming
// any of them forces VM recreation fleet-wide.
type ManifestDefaults struct {
	ManifestVersion         int    `json:"manifest_version"`
	Name                    string `json:"name,omitempty"`
	Runner                  string `json:"runner"`
	KMSEnabled              bool   `json:"kms_enabled"`
	GatewayEnabled          bool   `json:"gateway_enabled"`
	LocalKeyProviderEnabled bool   `json:"local_key_provider_enabled"`
	KeyProviderID           string `json:"key_provider_id"`
	PublicLogs              bool   `json:"public_logs"`
	PublicSysinfo           bool   `json:"public_sysinfo"`
	PublicTcbinfo           bool   `json:"public_tcbinfo"`
	NoInstanceID            bool   `json:"no_instance_id"`
	SecureTime              bool   `json:"secure_time"`
}

// VMParameters is the hardware and runtime spec for the managed VM.
type VMParameters struct {
	Name       string        `json:"name,omitempty"`
	Image      string        `json:"image"`
	VCPU       int           `json:"vcpu"`
	Memory     int           `json:"memory"`    // MB
	DiskSize   int           `json:"disk_size"` // GB
	UserConfig string        `json:"user_config"`
	Ports      []PortMapping `json:"ports"`
	Hugepages  bool          `json:"hugepages"`
	PinNUMA    bool          `json:"pin_numa"`
	Stopped    bool          `json:"stopped"`
}

// Validate rejects hardware specs that the VMM would accept but that can
// never boot a working validator (zero CPU, memory, or disk).
func (p *VMParameters) Validate() error {
	if p.VCPU <= 0 {
		return fmt.Errorf("vm parameters: vcpu must be > 0, got %d", p.VCPU)
	}
	if p.Memory <= 0 {
		return fmt.Errorf("vm parameters: memory (MB) must be > 0, got %d", p.Memory)
	}
	if p.DiskSize <= 0 {
		return fmt.Errorf("vm parameters: disk_size (GB) must be > 0, got %d", p.DiskSize)
	}
	return nil
}

// PortMapping forwards a host port into the VM.
type PortMapping struct {
	Protocol    string `json:"protocol"`
	HostPort    int    `json:"host_port"`
	VMPort      int    `json:"vm_port"`
	HostAddress string `json:"host_address,omitempty"`
}

// EnvVar is a single key/value pair delivered to the VM inside the
// encrypted environment blob.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
