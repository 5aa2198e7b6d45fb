package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/socialhub/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
	"github.com/dalemusser/waffle/logging"
	"github.com/spf13/cobra"
)

// Configuration flags (--http_port, --mongo_uri, ...) belong to WAFFLE's
// config loader, so cobra lets them through unparsed.
var rootCmd = &cobra.Command{
	Use:   "socialhub",
	Short: "socialhub API server",
	Long: `socialhub serves the social API: user, post, story and message
routers behind an allowlist CORS policy, plus the background-job webhook.
It connects to MongoDB before listening and shuts down cleanly on SIGTERM
or SIGINT.

Settings come from flags, SOCIALHUB_* environment variables, a .env file
and config.yaml/json/toml in the working directory. PORT selects the
listener when http_port is not set.`,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(context.Background(), bootstrap.Hooks)
	},
}

var validateCmd = &cobra.Command{
	Use:                "validate",
	Short:              "Load and validate configuration, then exit",
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.BootstrapLogger()
		defer func() { _ = logger.Sync() }()

		coreCfg, appCfg, err := bootstrap.LoadConfig(logger)
		if err != nil {
			return err
		}
		if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
