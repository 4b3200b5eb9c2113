package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Outcomes(t *testing.T) {
	r := NewRecorder()

	r.ObserveOutcome(OutcomeAttached)
	r.ObserveOutcome(OutcomeFailed)
	r.ObserveOutcome(OutcomeFailed)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.bootstraps.WithLabelValues(OutcomeAttached)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.bootstraps.WithLabelValues(OutcomeFailed)))
}

func TestRecorder_Phase(t *testing.T) {
	r := NewRecorder()
	r.SetPhase(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.phase))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveResolution("ws", 25*time.Millisecond)
	r.ObserveOutcome(OutcomeAttached)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `migui_bootstrap_total{outcome="attached"} 1`)
	assert.Contains(t, string(body), `migui_resolution_duration_seconds_count{transport="ws"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
