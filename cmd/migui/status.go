package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/migui/internal/adapter/output"
)

var statusOpts struct {
	format string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Bootstrap once and print the outcome",
	Long: `Resolve the DeviceManager, wait for the outcome and print a snapshot of
the root state. Exits non-zero when the manager could not be attached.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "output", "o", "plain",
		"Output format (plain, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOpts.format)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(format, output.DefaultFormatterOptions())
	if err != nil {
		return err
	}

	s := newSession(cfg, sink, nil)
	defer s.close()

	proxy, attachErr := s.attach(cmd.Context())

	snapshot := output.NewSnapshot(s.boot.Phase().String(), proxy, attachErr, nil)
	if err := formatter.Format(cmd.OutOrStdout(), snapshot); err != nil {
		return err
	}
	return attachErr
}
