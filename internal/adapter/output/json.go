package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats snapshots as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the snapshot as an indented JSON object.
func (f *JSONFormatter) Format(w io.Writer, s Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}
