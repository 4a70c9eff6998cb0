package run

import (
	"github.com/spf13/cobra"

	cmdcore "github.com/dstack-validator/updater/cmd/core"
)

type Handler struct {
	cmdcore.BaseHandler
}

// Run starts the reconcile loop and blocks until SIGINT/SIGTERM.
func (h Handler) Run(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return cmdcore.InitEngine(conf).Run(ctx)
}
