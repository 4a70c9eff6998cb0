package types

import "encoding/json"

// This file is the typed boundary for the VMM's prpc surface. Requests and
// responses are explicit structs; the only loosely-typed escape hatch is
// VMInstance.Raw, kept for diagnostics and forward compatibility with
// response fields this client does not know about.

// StatusRequest asks the VMM for the full VM list. It has no parameters.
type StatusRequest struct{}

// StatusResponse is the VMM's answer to a Status call.
type StatusResponse struct {
	VMs []VMInstance `json:"vms"`
}

// VMInstance is one VM as reported by the VMM. Older VMM builds report the
// application id as "app_id", newer ones as "appId"; both are accepted.
type VMInstance struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	AppID  string `json:"app_id"`

	// Raw is the undecoded instance object, retained so callers can log the
	// full VMM payload when a field they depend on is missing.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the raw payload.
func (v *VMInstance) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Status   string `json:"status"`
		AppID    string `json:"app_id"`
		AppIDAlt string `json:"appId"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	v.ID = a.ID
	v.Name = a.Name
	v.Status = a.Status
	v.AppID = a.AppIDAlt
	if v.AppID == "" {
		v.AppID = a.AppID
	}
	v.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// StopVMRequest stops a VM by id.
type StopVMRequest struct {
	ID string `json:"id"`
}

// RemoveVMRequest removes a stopped VM by id.
type RemoveVMRequest struct {
	ID string `json:"id"`
}

// CreateVMRequest creates a new VM. ComposeFile is the serialized
// AppManifest; EncryptedEnv is the hex envelope from the envelope package.
type CreateVMRequest struct {
	Name         string        `json:"name"`
	Image        string        `json:"image"`
	ComposeFile  string        `json:"compose_file"`
	VCPU         int           `json:"vcpu"`
	Memory       int           `json:"memory"`
	DiskSize     int           `json:"disk_size"`
	UserConfig   string        `json:"user_config"`
	Ports        []PortMapping `json:"ports"`
	EncryptedEnv string        `json:"encrypted_env"`
	Hugepages    bool          `json:"hugepages"`
	PinNUMA      bool          `json:"pin_numa"`
	Stopped      bool          `json:"stopped"`
}

// CreateVMResponse returns the id of the created VM.
type CreateVMResponse struct {
	ID string `json:"id"`
}

// PubKeyRequest asks the VMM for the env-encryption public key of an app.
// AppID is the 40-hex-character truncated compose hash.
type PubKeyRequest struct {
	AppID string `json:"app_id"`
}

// PubKeyResponse carries the hex-encoded X25519 public key.
type PubKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// ComposeHashResponse carries the VMM's own hash of a create request.
type ComposeHashResponse struct {
	Hash string `json:"hash"`
}
