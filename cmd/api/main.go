package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MyTurnyet/switch-this-sub002/internal/buildinfo"
	"github.com/MyTurnyet/switch-this-sub002/internal/config"
	"github.com/MyTurnyet/switch-this-sub002/internal/logging"
)

var (
	// Global flags
	configPath string

	cfg *config.Config
	log *zap.SugaredLogger
)

// newRootCommand creates the root command; subcommands share the loaded
// config and logger.
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "switchyard",
		Short: "Layout state and switchlist operations for a model railroad",
		Long: `switchyard tracks which car sits on which track of a model railroad
layout and plans switchlists for train routes.

Examples:
  switchyard serve --config configs/config.yaml
  switchyard import --layout configs/layout.example.yaml
  switchyard plan --layout configs/layout.example.yaml --route bay-turn
  switchyard check --layout configs/layout.example.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			c, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(c.Logging)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			cfg, log = c, logger.Sugar()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search ./, ./configs, /etc/switchyard)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
