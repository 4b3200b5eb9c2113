package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats snapshots as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes the snapshot as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, s Snapshot) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(s); err != nil {
		return err
	}
	return encoder.Close()
}
