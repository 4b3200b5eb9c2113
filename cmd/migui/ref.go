package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/migui/internal/broker"
	"github.com/jmylchreest/migui/internal/broker/dbus"
	"github.com/jmylchreest/migui/internal/broker/ws"
)

var refOpts struct {
	resolve bool
	watch   bool
	timeout time.Duration
}

var refCmd = &cobra.Command{
	Use:   "ref [flags] <reference>",
	Short: "Parse a proxy reference and optionally resolve it",
	Long: `Parse a proxy reference such as "DeviceManager -w ws" and print its parts.

With --resolve, the reference is resolved through the configured transports
(ws, dbus) and the resulting proxy is described.

Flags go before the reference; everything after it, "-w ws" included, is
part of the reference.

With --watch, a dbus reference is followed on the bus and every change of
its name owner is printed until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRef,
}

func init() {
	rootCmd.AddCommand(refCmd)

	refCmd.Flags().BoolVar(&refOpts.resolve, "resolve", false,
		"Resolve the reference through the broker")
	refCmd.Flags().BoolVar(&refOpts.watch, "watch", false,
		"Follow name owner changes of a dbus reference")
	// everything after the identity belongs to the reference, e.g. "-w ws"
	refCmd.Flags().SetInterspersed(false)
	refCmd.Flags().DurationVar(&refOpts.timeout, "timeout", 10*time.Second,
		"Resolution timeout with --resolve")
}

func runRef(cmd *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")
	ref, err := broker.ParseReference(raw)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "identity:  %s\n", ref.Identity)
	fmt.Fprintf(w, "transport: %s\n", ref.Transport)
	for _, k := range sortedKeys(ref.Options) {
		fmt.Fprintf(w, "option:    -%s %s\n", k, ref.Options[k])
	}
	fmt.Fprintf(w, "canonical: %s\n", ref.String())

	if refOpts.resolve {
		if err := resolveRef(cmd.Context(), w, ref); err != nil {
			return err
		}
	}
	if refOpts.watch {
		return watchRef(cmd.Context(), w, ref)
	}
	return nil
}

func resolveRef(ctx context.Context, w io.Writer, ref broker.Reference) error {
	s := newSession(cfg, sink, nil)
	defer s.close()
	s.loop.Start(ctx)

	ctx, cancel := context.WithTimeout(ctx, refOpts.timeout)
	defer cancel()

	if !slices.Contains(s.broker.Transports(), ref.Transport) {
		return fmt.Errorf("%w: %q (available: %s)", broker.ErrUnknownTransport,
			ref.Transport, strings.Join(s.broker.Transports(), ", "))
	}

	proxy, err := s.broker.StringToProxy(ctx, ref.String()).Await(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "resolved:  %s (%s)\n", proxy.Identity(), proxy.Transport())
	switch p := proxy.(type) {
	case *ws.Proxy:
		fmt.Fprintf(w, "type:      %s\n", p.Type())
	case *dbus.Proxy:
		fmt.Fprintf(w, "interface: %s\n", p.Interface())
		fmt.Fprintf(w, "methods:   %s\n", strings.Join(p.Methods(), ", "))
	}
	return nil
}

func watchRef(ctx context.Context, w io.Writer, ref broker.Reference) error {
	if ref.Transport != dbus.TransportName {
		return fmt.Errorf("--watch needs a %s reference, got %q", dbus.TransportName, ref.Transport)
	}

	opts := dbusOptions(cfg, logger)
	conn, err := opts.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, err := dbus.WatchOwner(ctx, conn, opts, ref.Identity)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "watching:  %s\n", opts.BusName(ref.Identity))
	for ev := range events {
		state := "gone"
		if ev.Present {
			state = "present"
		}
		fmt.Fprintf(w, "%s  %s %s\n", time.Now().Format(time.TimeOnly), ev.Identity, state)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
