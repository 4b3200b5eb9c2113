package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/migui/internal/band"
	"github.com/jmylchreest/migui/internal/broker/dbus"
)

var bridgeOpts struct {
	callTimeout time.Duration
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Publish the DeviceManager on D-Bus",
	Long: `Attach to the DeviceManager through the websocket broker and publish it on
the configured bus, so local tools can resolve "DeviceManager -w dbus".

Runs until interrupted. The bus name is released on exit.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().DurationVar(&bridgeOpts.callTimeout, "call-timeout", 30*time.Second,
		"Limit for each forwarded call")
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s := newSession(cfg, sink, nil)
	defer s.close()

	proxy, err := s.attach(ctx)
	if err != nil {
		return err
	}

	opts := dbusOptions(cfg, logger)
	conn, err := opts.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	svc := dbus.NewService(conn, opts)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("failed to release bus names", "error", err)
		}
	}()

	identity := proxy.Identity()
	if err := svc.Export(identity, band.NewBridge(ctx, proxy, bridgeOpts.callTimeout)); err != nil {
		return err
	}

	logger.Info("bridge running", "bus", opts.BusName(identity), "path", opts.ObjectPath(identity))
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
