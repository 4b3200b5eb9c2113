package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// copyText puts text on the system clipboard.
func copyText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard, xclip or xsel)")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
