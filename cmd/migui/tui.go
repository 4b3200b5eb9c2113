package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/migui/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive band view",
	Long: `Launch the interactive terminal view. The view follows the bootstrap:
a spinner while the DeviceManager resolves, then the bands in range.

Key bindings:
  j/k, ↑/↓    Navigate list
  enter       Band details
  r           Refresh devices
  l           Locate (vibrate) band
  f           Flash LEDs
  C           Copy devices as YAML
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	s := newSession(cfg, sink, nil)
	defer s.close()

	if err := s.start(cmd.Context()); err != nil {
		return err
	}

	return tui.Run(tui.RunOptions{
		State:   s.root,
		Session: s.boot,
		Refresh: cfg.UI.Refresh.Duration(),
	})
}
