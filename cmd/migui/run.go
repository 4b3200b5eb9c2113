package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/migui/internal/config"
	"github.com/jmylchreest/migui/internal/metrics"
)

var runOpts struct {
	watch       bool
	metricsAddr string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attach to the DeviceManager and stay attached",
	Long: `Bootstrap the application: resolve the DeviceManager through the broker,
bind it to the root state and keep running until interrupted.

With --watch, every write to the config file starts a fresh session with the
new settings. Restarts are throttled by the [reconnect] section.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runOpts.watch, "watch", "w", false,
		"Re-bootstrap when the config file changes")
	runCmd.Flags().StringVar(&runOpts.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (overrides [metrics] addr)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	recorder := metrics.NewRecorder()
	addr := runOpts.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		startMetrics(ctx, addr, recorder)
	}

	current := newSession(cfg, sink, recorder)
	if err := current.start(ctx); err != nil {
		current.close()
		return err
	}
	defer func() { current.close() }()

	if !runOpts.watch {
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	}

	path := globalOpts.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	watcher, err := config.NewWatcher(path, logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()
	if err := watcher.Start(); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Reconnect.Rate), cfg.Reconnect.Burst)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil

		case <-watcher.Changes():
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}

			next, err := config.LoadConfig(path)
			if err != nil {
				logger.Warn("ignoring config change", "error", err)
				continue
			}
			cfg = next
			current = restart(ctx, current, recorder)
		}
	}
}

// restart replaces the running session with one built from the current config.
func restart(ctx context.Context, old *session, recorder *metrics.Recorder) *session {
	logger.Info("config changed, re-bootstrapping", "url", cfg.Broker.URL)
	old.close()

	s := newSession(cfg, sink, recorder)
	if err := s.start(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err)
	}
	return s
}
