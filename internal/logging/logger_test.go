package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		in       int
		expected int
		slog     slog.Level
	}{
		{LevelTrace, LevelTrace, slogLevelTrace},
		{LevelDebug, LevelDebug, slog.LevelDebug},
		{LevelInfo, LevelInfo, slog.LevelInfo},
		{LevelWarn, LevelWarn, slog.LevelWarn},
		{LevelError, LevelError, slog.LevelError},
		{-3, LevelTrace, slogLevelTrace},
		{42, LevelError, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(LevelName(tt.in), func(t *testing.T) {
			s := NewNop()
			s.SetLevel(tt.in)
			assert.Equal(t, tt.expected, s.Level())
			assert.Equal(t, tt.slog, ToSlog(tt.in))
		})
	}
}

func TestSink_FiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, FormatText)

	s.SetLevel(LevelInfo)
	s.Logger().Debug("hidden")
	s.Logger().Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestSink_DefaultsToWarn(t *testing.T) {
	s := NewNop()
	assert.Equal(t, LevelWarn, s.Level())
}

func TestSink_OnFailure(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, FormatJSON)

	s.OnFailure(errors.New("connection refused"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, FailureTitle, entry["msg"])
	assert.Equal(t, "connection refused", entry["error"])
}

func TestSink_OnFailureIgnoresThreshold(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, FormatText)
	s.SetLevel(LevelError)

	s.OnFailure(errors.New("boom"))
	assert.Contains(t, buf.String(), FailureTitle)
}

func TestSink_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, FormatText)
	s.SetLevel(LevelTrace)

	s.Logger().Log(context.Background(), ToSlog(LevelTrace), "frame")
	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestFromSlog(t *testing.T) {
	assert.Equal(t, LevelDebug, FromSlog(slog.LevelDebug+1))
	assert.Equal(t, LevelWarn, FromSlog(slog.LevelWarn))
	assert.Equal(t, LevelError, FromSlog(slog.LevelError+8))
}
