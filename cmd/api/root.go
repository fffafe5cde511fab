package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"assetapi/internal/config"
	"assetapi/internal/logger"
)

// rootCmd serves the API when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:          "assetapi",
	Short:        "Digital asset management API",
	Long:         "assetapi stores uploaded files with searchable metadata and serves them back over HTTP.",
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringP("port", "p", "", "listen port (overrides PORT)")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// env is what every subcommand starts from.
type env struct {
	cfg *config.AppConfig
	loc *time.Location
	log *zap.Logger
}

func loadEnv(cmd *cobra.Command) env {
	cfg := config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	loc := logger.LoadLocation(cfg.Timezone)
	return env{cfg: cfg, loc: loc, log: logger.New(cfg.LogLevel, loc)}
}
