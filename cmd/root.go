package cmd

import (
	"fmt"
	"os"

	"helpdesk/internal/core/config"
	"helpdesk/internal/core/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X helpdesk/cmd.Version=...".
var Version = "dev"

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "helpdesk",
	Short:         "IT helpdesk and asset management service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		// .env never overrides variables already set in the environment.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "Warning: unable to read .env:", err)
		}

		cfg = config.Load()
		log = logger.NewLogger(cfg.AppEnv, cfg.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		_ = log.Sync()
	},
}

func Execute() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
