package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/migui/internal/adapter/output"
	"github.com/jmylchreest/migui/internal/band"
	"github.com/jmylchreest/migui/internal/broker"
)

var devicesOpts struct {
	format      string
	template    string
	sort        string
	order       string
	search      string
	scanTimeout time.Duration
}

var userOpts struct {
	uid    uint32
	female bool
	age    uint8
	height uint8
	weight uint8
	kind   uint8
	alias  string
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List bands with their battery state",
	RunE:  runDevices,
}

var devicesInfoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Show firmware, steps and connection parameters of a band",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), args[0], func(ctx context.Context, m *band.Manager, address string) error {
			return printInfo(ctx, cmd.OutOrStdout(), m, address)
		})
	},
}

var devicesLocateCmd = &cobra.Command{
	Use:   "locate <device>",
	Short: "Make a band vibrate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), args[0], func(ctx context.Context, m *band.Manager, address string) error {
			return m.Locate(ctx, address)
		})
	},
}

var devicesFlashCmd = &cobra.Command{
	Use:   "flash <device>",
	Short: "Flash the LEDs of a band",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), args[0], func(ctx context.Context, m *band.Manager, address string) error {
			return m.FlashLEDs(ctx, address, band.MaxLEDLevel, band.MaxLEDLevel, band.MaxLEDLevel)
		})
	},
}

var devicesSelfTestCmd = &cobra.Command{
	Use:   "selftest <device>",
	Short: "Start the band's built-in self test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), args[0], func(ctx context.Context, m *band.Manager, address string) error {
			return m.SelfTest(ctx, address)
		})
	},
}

var devicesPairCmd = &cobra.Command{
	Use:   "pair <device>",
	Short: "Pair a band with this host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), args[0], func(ctx context.Context, m *band.Manager, address string) error {
			return m.Pair(ctx, address)
		})
	},
}

var devicesUserCmd = &cobra.Command{
	Use:   "user <device>",
	Short: "Write the wearer profile to a band",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info := band.UserInfo{
			UID:    userOpts.uid,
			Gender: band.Male,
			Age:    userOpts.age,
			Height: userOpts.height,
			Weight: userOpts.weight,
			Type:   userOpts.kind,
			Alias:  userOpts.alias,
		}
		if userOpts.female {
			info.Gender = band.Female
		}
		return withDevice(cmd.Context(), args[0], func(ctx context.Context, m *band.Manager, address string) error {
			return m.SetUserInfo(ctx, address, info)
		})
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesInfoCmd, devicesLocateCmd, devicesFlashCmd,
		devicesSelfTestCmd, devicesPairCmd, devicesUserCmd)

	devicesCmd.PersistentFlags().DurationVar(&devicesOpts.scanTimeout, "scan-timeout", band.DefaultDiscoverTimeout,
		"How long the DeviceManager scans for bands")

	devicesCmd.Flags().StringVarP(&devicesOpts.format, "output", "o", "plain",
		"Output format (plain, json, yaml, addresses)")
	devicesCmd.Flags().StringVar(&devicesOpts.template, "template", "",
		"Go template for each device in plain output")
	sortDefaults := band.DefaultSortOptions()
	devicesCmd.Flags().StringVar(&devicesOpts.sort, "sort", string(sortDefaults.Field),
		"Sort field (name, address, battery)")
	devicesCmd.Flags().StringVar(&devicesOpts.order, "order", string(sortDefaults.Order),
		"Sort order (asc, desc)")
	devicesCmd.Flags().StringVarP(&devicesOpts.search, "search", "s", "",
		"Only show bands whose name or address contains this text")

	devicesUserCmd.Flags().Uint32Var(&userOpts.uid, "uid", 0, "User id")
	devicesUserCmd.Flags().BoolVar(&userOpts.female, "female", false, "Wearer is female")
	devicesUserCmd.Flags().Uint8Var(&userOpts.age, "age", 0, "Age in years")
	devicesUserCmd.Flags().Uint8Var(&userOpts.height, "height", 0, "Height in cm")
	devicesUserCmd.Flags().Uint8Var(&userOpts.weight, "weight", 0, "Weight in kg")
	devicesUserCmd.Flags().Uint8Var(&userOpts.kind, "type", 0, "Profile type")
	devicesUserCmd.Flags().StringVar(&userOpts.alias, "alias", "",
		fmt.Sprintf("Alias, exactly %d characters", band.AliasLen))
	_ = devicesUserCmd.MarkFlagRequired("alias")
}

// withDevice attaches a session, resolves the device selector (index,
// address or name) and runs fn against the DeviceManager.
func withDevice(ctx context.Context, selector string, fn func(ctx context.Context, m *band.Manager, address string) error) error {
	s := newSession(cfg, sink, nil)
	defer s.close()

	proxy, err := s.attach(ctx)
	if err != nil {
		return err
	}
	m := newManager(proxy)
	address, err := m.Select(ctx, selector)
	if err != nil {
		return err
	}
	logger.Debug("device selected", "selector", selector, "address", address)
	return fn(ctx, m, address)
}

func runDevices(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(devicesOpts.format)
	if err != nil {
		return err
	}
	field, err := band.ParseSortField(devicesOpts.sort)
	if err != nil {
		return err
	}
	order, err := band.ParseSortOrder(devicesOpts.order)
	if err != nil {
		return err
	}
	opts := output.DefaultFormatterOptions()
	opts.Template = devicesOpts.template
	formatter, err := output.NewFormatter(format, opts)
	if err != nil {
		return err
	}

	s := newSession(cfg, sink, nil)
	defer s.close()

	ctx := cmd.Context()
	proxy, err := s.attach(ctx)
	if err != nil {
		return err
	}

	statuses, err := newManager(proxy).Survey(ctx)
	if err != nil {
		return err
	}
	statuses = band.Search(statuses, devicesOpts.search)
	band.SortStatuses(statuses, band.SortOptions{Field: field, Order: order})

	snapshot := output.NewSnapshot(s.boot.Phase().String(), proxy, nil, statuses)
	return formatter.Format(cmd.OutOrStdout(), snapshot)
}

func newManager(proxy broker.Proxy) *band.Manager {
	m := band.NewManager(proxy)
	m.SetDiscoverTimeout(devicesOpts.scanTimeout)
	return m
}

func printInfo(ctx context.Context, w io.Writer, m *band.Manager, address string) error {
	name, err := m.Name(ctx, address)
	if err != nil {
		return err
	}
	info, err := m.DeviceInfo(ctx, address)
	if err != nil {
		return err
	}
	steps, err := m.Steps(ctx, address)
	if err != nil {
		return err
	}
	params, err := m.LEParams(ctx, address)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "address:   %s\n", address)
	fmt.Fprintf(w, "name:      %s\n", name)
	fmt.Fprintf(w, "firmware:  %s\n", info.FirmwareVersion)
	fmt.Fprintf(w, "steps:     %s\n", humanize.Comma(int64(steps)))
	fmt.Fprintf(w, "interval:  %d (min %d, max %d)\n",
		params.ConnectionInterval, params.MinConnectionInterval, params.MaxConnectionInterval)
	fmt.Fprintf(w, "latency:   %d\n", params.Latency)
	fmt.Fprintf(w, "timeout:   %d\n", params.Timeout)
	fmt.Fprintf(w, "advertise: %d\n", params.AdvertisementInterval)
	return nil
}
