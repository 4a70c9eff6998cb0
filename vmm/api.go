package vmm

import (
	"context"
	"fmt"

	"github.com/dstack-validator/updater/types"
)

// Status returns the VMM's full VM list.
func (c *Client) Status(ctx context.Context) (*types.StatusResponse, error) {
	var resp types.StatusResponse
	if err := c.call(ctx, "Status", types.StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	if resp.VMs == nil {
		return nil, fmt.Errorf("%w: Status missing vms list", ErrMalformedResponse)
	}
	return &resp, nil
}

// StopVM asks the VMM to stop a VM. The VMM acks before the guest is fully
// down; callers wanting a hard bound put a deadline on ctx.
func (c *Client) StopVM(ctx context.Context, id string) error {
	return c.call(ctx, "StopVm", types.StopVMRequest{ID: id}, nil)
}

// RemoveVM removes a stopped VM.
func (c *Client) RemoveVM(ctx context.Context, id string) error {
	return c.call(ctx, "RemoveVm", types.RemoveVMRequest{ID: id}, nil)
}

// CreateVM creates a VM and returns its id.
func (c *Client) CreateVM(ctx context.Context, req *types.CreateVMRequest) (string, error) {
	var resp types.CreateVMResponse
	if err := c.call(ctx, "CreateVm", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: CreateVm missing id", ErrMalformedResponse)
	}
	return resp.ID, nil
}

// AppEnvEncryptPubKey fetches the hex X25519 public key the VMM expects the
// encrypted env for appID to be sealed against.
func (c *Client) AppEnvEncryptPubKey(ctx context.Context, appID string) (string, error) {
	var resp types.PubKeyResponse
	if err := c.call(ctx, "GetAppEnvEncryptPubKey", types.PubKeyRequest{AppID: appID}, &resp); err != nil {
		return "", err
	}
	if resp.PublicKey == "" {
		return "", fmt.Errorf("%w: GetAppEnvEncryptPubKey missing public_key", ErrMalformedResponse)
	}
	return resp.PublicKey, nil
}

// ComposeHash asks the VMM to compute its own hash over a create request.
func (c *Client) ComposeHash(ctx context.Context, req *types.CreateVMRequest) (string, error) {
	var resp types.ComposeHashResponse
	if err := c.call(ctx, "GetComposeHash", req, &resp); err != nil {
		return "", err
	}
	if resp.Hash == "" {
		return "", fmt.Errorf("%w: GetComposeHash missing hash", ErrMalformedResponse)
	}
	return resp.Hash, nil
}
