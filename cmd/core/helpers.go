package core

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dstack-validator/updater/composeapi"
	"github.com/dstack-validator/updater/config"
	"github.com/dstack-validator/updater/engine"
	"github.com/dstack-validator/updater/platform"
	"github.com/dstack-validator/updater/vmm"
)

// BaseHandler provides shared config access for all command handlers.
type BaseHandler struct {
	ConfProvider func() *config.Config
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// InitPlatformStore opens the persisted settings store.
func InitPlatformStore(conf *config.Config) *platform.Store {
	path := conf.PlatformConfigPath
	if path == "" {
		path = platform.DefaultConfigPath
	}
	return platform.NewStore(path)
}

// InitEngine wires up all collaborators and the reconcile engine.
func InitEngine(conf *config.Config) *engine.Engine {
	return engine.New(
		conf,
		composeapi.New(conf.ComposeAPIURL),
		vmm.New(conf.VMMURL),
		InitPlatformStore(conf),
	)
}
