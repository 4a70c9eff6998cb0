package configcmd

import "github.com/spf13/cobra"

// Actions defines operations on the persisted platform settings.
type Actions interface {
	Show(cmd *cobra.Command, args []string) error
	SetVMMURL(cmd *cobra.Command, args []string) error
	SetEnv(cmd *cobra.Command, args []string) error
	RemoveEnv(cmd *cobra.Command, args []string) error
	ListEnv(cmd *cobra.Command, args []string) error
	GetEnv(cmd *cobra.Command, args []string) error
}

// Command builds the "config" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persisted platform settings",
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current platform configuration",
			RunE:  h.Show,
		},
		&cobra.Command{
			Use:   "set-vmm-url URL",
			Short: "Set the in-guest VMM URL (e.g. http://10.0.2.2:10300/)",
			Args:  cobra.ExactArgs(1),
			RunE:  h.SetVMMURL,
		},
		&cobra.Command{
			Use:   "set-env KEY [VALUE]",
			Short: "Set an environment variable (prompts for VALUE when omitted)",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  h.SetEnv,
		},
		&cobra.Command{
			Use:   "remove-env KEY",
			Short: "Remove an environment variable",
			Args:  cobra.ExactArgs(1),
			RunE:  h.RemoveEnv,
		},
		&cobra.Command{
			Use:   "list-env",
			Short: "List all environment variables",
			RunE:  h.ListEnv,
		},
		&cobra.Command{
			Use:   "get-env KEY",
			Short: "Print one environment variable value",
			Args:  cobra.ExactArgs(1),
			RunE:  h.GetEnv,
		},
	)
	return configCmd
}
