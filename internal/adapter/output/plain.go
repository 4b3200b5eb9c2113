package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/migui/internal/band"
)

// PlainFormatter formats snapshots as plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter. It fails when the
// custom device template does not parse.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("invalid device template: %w", err)
		}
		f.template = tmpl
	}

	return f, nil
}

// templateData is passed to custom device templates.
type templateData struct {
	Index  int
	Device band.Status
}

// Format writes the snapshot as plain text.
func (f *PlainFormatter) Format(w io.Writer, s Snapshot) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("phase:   %s\n", s.Phase))
	if s.Manager != nil {
		sb.WriteString(fmt.Sprintf("manager: %s (%s)\n", s.Manager.Identity, s.Manager.Transport))
	}
	if s.Error != "" {
		sb.WriteString(fmt.Sprintf("error:   %s\n", s.Error))
	}

	if f.opts.ShowDevices && s.Devices != nil {
		sb.WriteString(fmt.Sprintf("devices: %d\n", len(s.Devices)))
		for i, d := range s.Devices {
			if err := f.formatDevice(&sb, i+1, d); err != nil {
				return err
			}
		}
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}

func (f *PlainFormatter) formatDevice(sb *strings.Builder, index int, d band.Status) error {
	if f.template != nil {
		if err := f.template.Execute(sb, templateData{Index: index, Device: d}); err != nil {
			return err
		}
		sb.WriteString("\n")
		return nil
	}

	sb.WriteString(fmt.Sprintf("  [%d] %s %s", index, d.Address, d.Name))
	switch {
	case d.Battery != nil:
		sb.WriteString(fmt.Sprintf("  battery %d%% (%s, charged %s)",
			d.Battery.Level, d.Battery.Status, relativeTime(d.Battery.LastCharged)))
	case d.Err != "":
		sb.WriteString("  battery unavailable: " + d.Err)
	}
	sb.WriteString("\n")
	return nil
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": relativeTime,
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
	}
}

// relativeTime returns a human-readable relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}
