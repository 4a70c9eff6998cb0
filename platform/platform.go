// Package platform manages the locally persisted validator settings: the
// VMM base URL used inside the guest and the secret env values the compose
// API only names keys for. The file is shared between the running updater
// (read at cycle start) and the config CLI (read-modify-write), so all
// access goes through a flock-protected store.
package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/dstack-validator/updater/store"
	"github.com/dstack-validator/updater/types"
)

const (
	// DefaultConfigPath is the fixed location of the persisted settings.
	DefaultConfigPath = "/etc/platform-validator/config.json"

	// GuestVMMURLKey is the env key that always reaches the VM.
	GuestVMMURLKey = "DSTACK_VMM_URL"

	// DefaultGuestVMMURL is the VMM address as seen from inside the guest
	// (user-mode networking host alias) when the operator has not set one.
	DefaultGuestVMMURL = "http://10.0.2.2:10300/"
)

// Config is the persisted settings document.
type Config struct {
	DstackVMMURL string            `json:"dstack_vmm_url,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
}

// Init implements store.Initer.
func (c *Config) Init() {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
}

// GuestVMMURL returns the configured in-guest VMM URL or the default.
func (c *Config) GuestVMMURL() string {
	if c.DstackVMMURL != "" {
		return c.DstackVMMURL
	}
	return DefaultGuestVMMURL
}

// Store is the flock-protected accessor for the settings file.
type Store struct {
	inner *store.Store[Config]
}

// NewStore opens a Store for the given settings path. The lock file lives
// next to the data file.
func NewStore(path string) *Store {
	return &Store{inner: store.New[Config](path+".lock", path)}
}

// Load returns a detached snapshot of the settings, safe to use after the
// lock is released. A missing file yields the zero config.
func (s *Store) Load(ctx context.Context) (Config, error) {
	var snapshot Config
	err := s.inner.With(ctx, func(c *Config) error {
		snapshot = *c
		snapshot.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			snapshot.Env[k] = v
		}
		return nil
	})
	if err != nil {
		return Config{}, err
	}
	return snapshot, nil
}

// SetVMMURL persists the in-guest VMM base URL.
func (s *Store) SetVMMURL(ctx context.Context, url string) error {
	return s.inner.Update(ctx, func(c *Config) error {
		c.DstackVMMURL = url
		return nil
	})
}

// SetEnv persists one env value.
func (s *Store) SetEnv(ctx context.Context, key, value string) error {
	return s.inner.Update(ctx, func(c *Config) error {
		c.Env[key] = value
		return nil
	})
}

// RemoveEnv deletes one env value. Removing an absent key is an error so
// the CLI can report it instead of silently succeeding.
func (s *Store) RemoveEnv(ctx context.Context, key string) error {
	return s.inner.Update(ctx, func(c *Config) error {
		if _, ok := c.Env[key]; !ok {
			return fmt.Errorf("environment variable %q not found", key)
		}
		delete(c.Env, key)
		return nil
	})
}

// GetEnv returns one env value.
func (s *Store) GetEnv(ctx context.Context, key string) (string, error) {
	var value string
	err := s.inner.With(ctx, func(c *Config) error {
		v, ok := c.Env[key]
		if !ok {
			return fmt.Errorf("environment variable %q not found", key)
		}
		value = v
		return nil
	})
	return value, err
}

// BuildEnvVars assembles the env list delivered to the VM: every persisted
// entry in sorted key order, then DSTACK_VMM_URL appended if the operator
// has not set it explicitly. Sorted order keeps the encrypted payload
// deterministic for a given config.
func BuildEnvVars(cfg Config) []types.EnvVar {
	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	envs := make([]types.EnvVar, 0, len(keys)+1)
	for _, k := range keys {
		envs = append(envs, types.EnvVar{Key: k, Value: cfg.Env[k]})
	}
	if _, ok := cfg.Env[GuestVMMURLKey]; !ok {
		envs = append(envs, types.EnvVar{Key: GuestVMMURLKey, Value: cfg.GuestVMMURL()})
	}
	return envs
}
