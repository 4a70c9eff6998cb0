package run

import "github.com/spf13/cobra"

// Actions defines the updater service operations.
type Actions interface {
	Run(cmd *cobra.Command, args []string) error
}

// Commands builds the service command set.
func Commands(h Actions) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "run",
			Short: "Start the auto-updater reconcile loop",
			RunE:  h.Run,
		},
	}
}
