// Package main provides the CLI entrypoint for migui.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/migui/internal/config"
	"github.com/jmylchreest/migui/internal/logging"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		endpoint   string
	}
	sink   *logging.Sink
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "migui",
	Short: "Mi Band device manager client",
	Long: `migui attaches to a remote DeviceManager through an object broker and
drives Mi Band devices through it.

Running migui without a subcommand launches the interactive TUI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalOpts.endpoint != "" {
			cfg.Broker.URL = globalOpts.endpoint
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		setupLogger()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable debug logging once attached")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/migui/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.endpoint, "endpoint", "",
		"Broker websocket URL (overrides [broker] url)")
}

// setupLogger configures the global log sink. Logs go to stderr so stdout
// is clean for output.
func setupLogger() {
	sink = logging.New(os.Stderr, logging.Format(cfg.Log.Format))
	logger = sink.Logger()
	slog.SetDefault(logger)
}
