package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdconfig "github.com/dstack-validator/updater/cmd/configcmd"
	cmdcore "github.com/dstack-validator/updater/cmd/core"
	cmdrun "github.com/dstack-validator/updater/cmd/run"
	"github.com/dstack-validator/updater/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validator-updater",
		Short: "Validator VM auto-updater and configuration manager",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmdcore.CommandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("vmm-url", "", "VMM base URL")
	cmd.PersistentFlags().String("compose-api-url", "", "compose config API URL")
	cmd.PersistentFlags().String("platform-config-path", "", "persisted settings file path")

	_ = viper.BindPFlag("vmm_url", cmd.PersistentFlags().Lookup("vmm-url"))
	_ = viper.BindPFlag("compose_api_url", cmd.PersistentFlags().Lookup("compose-api-url"))
	_ = viper.BindPFlag("platform_config_path", cmd.PersistentFlags().Lookup("platform-config-path"))

	// The VMM base URL historically comes from the plain VMM_URL env var.
	_ = viper.BindEnv("vmm_url", "VMM_URL")

	confProvider := func() *config.Config { return conf }

	for _, c := range cmdrun.Commands(cmdrun.Handler{BaseHandler: cmdcore.BaseHandler{ConfProvider: confProvider}}) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(cmdconfig.Command(cmdconfig.Handler{BaseHandler: cmdcore.BaseHandler{ConfProvider: confProvider}}))

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	_ = viper.ReadInConfig() // optional; missing file is OK

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if conf.PollInterval <= 0 {
		conf.PollInterval = config.DefaultPollInterval
	}

	return log.SetupLog(ctx, &conf.Log, "")
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
