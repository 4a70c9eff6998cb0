package configcmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	cmdcore "github.com/dstack-validator/updater/cmd/core"
	"github.com/dstack-validator/updater/platform"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) store() (*platform.Store, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, err
	}
	return cmdcore.InitPlatformStore(conf), nil
}

func (h Handler) Show(cmd *cobra.Command, _ []string) error {
	store, err := h.store()
	if err != nil {
		return err
	}
	cfg, err := store.Load(cmdcore.CommandContext(cmd))
	if err != nil {
		return err
	}

	fmt.Println("Platform configuration:")
	url := cfg.DstackVMMURL
	if url == "" {
		url = "(not set)"
	}
	fmt.Printf("  VMM URL: %s\n", url)
	fmt.Println("  Environment variables:")
	if len(cfg.Env) == 0 {
		fmt.Println("    (none)")
		return nil
	}
	for _, key := range sortedKeys(cfg.Env) {
		fmt.Printf("    %s = %s\n", key, cfg.Env[key])
	}
	return nil
}

func (h Handler) SetVMMURL(cmd *cobra.Command, args []string) error {
	store, err := h.store()
	if err != nil {
		return err
	}
	if err := store.SetVMMURL(cmdcore.CommandContext(cmd), args[0]); err != nil {
		return err
	}
	fmt.Printf("VMM URL set to: %s\n", args[0])
	return nil
}

// SetEnv persists one env value. When VALUE is omitted and stdin is a
// terminal, the value is read with echo disabled so secrets stay out of
// shell history and process listings.
func (h Handler) SetEnv(cmd *cobra.Command, args []string) error {
	store, err := h.store()
	if err != nil {
		return err
	}
	key := args[0]

	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case term.IsTerminal(int(os.Stdin.Fd())):
		fmt.Fprintf(os.Stderr, "Value for %s: ", key)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read value: %w", err)
		}
		value = string(raw)
	default:
		return fmt.Errorf("no value given for %s and stdin is not a terminal", key)
	}

	if err := store.SetEnv(cmdcore.CommandContext(cmd), key, value); err != nil {
		return err
	}
	fmt.Printf("Environment variable set: %s\n", key)
	return nil
}

func (h Handler) RemoveEnv(cmd *cobra.Command, args []string) error {
	store, err := h.store()
	if err != nil {
		return err
	}
	if err := store.RemoveEnv(cmdcore.CommandContext(cmd), args[0]); err != nil {
		return err
	}
	fmt.Printf("Environment variable removed: %s\n", args[0])
	return nil
}

func (h Handler) ListEnv(cmd *cobra.Command, _ []string) error {
	store, err := h.store()
	if err != nil {
		return err
	}
	cfg, err := store.Load(cmdcore.CommandContext(cmd))
	if err != nil {
		return err
	}
	if len(cfg.Env) == 0 {
		fmt.Println("No environment variables configured")
		return nil
	}
	fmt.Println("Environment variables:")
	for _, key := range sortedKeys(cfg.Env) {
		fmt.Printf("  %s = %s\n", key, cfg.Env[key])
	}
	return nil
}

func (h Handler) GetEnv(cmd *cobra.Command, args []string) error {
	store, err := h.store()
	if err != nil {
		return err
	}
	value, err := store.GetEnv(cmdcore.CommandContext(cmd), args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
