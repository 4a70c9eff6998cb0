package types

// AppManifest is the canonical document describing the application running
// inside the managed VM. Its serialized form (canonical JSON, see
// manifest.ComputeHash) is what the drift detector hashes, so every field
// here participates in the recreate decision.
//
// JSON field names follow the dstack app_compose schema and must not change.
type AppManifest struct {
	ManifestVersion         int      `json:"manifest_version"`
	Name                    string   `json:"name"`
	Runner                  string   `json:"runner"`
	DockerComposeFile       string   `json:"docker_compose_file"`
	KMSEnabled              bool     `json:"kms_enabled"`
	GatewayEnabled          bool     `json:"gateway_enabled"`
	LocalKeyProviderEnabled bool     `json:"local_key_provider_enabled"`
	KeyProviderID           string   `json:"key_provider_id"`
	PublicLogs              bool     `json:"public_logs"`
	PublicSysinfo           bool     `json:"public_sysinfo"`
	PublicTcbinfo           bool     `json:"public_tcbinfo"`
	AllowedEnvs             []string `json:"allowed_envs"`
	NoInstanceID            bool     `json:"no_instance_id"`
	SecureTime              bool     `json:"secure_time"`
}
