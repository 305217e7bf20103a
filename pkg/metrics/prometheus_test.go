package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

func TestMetricsRecorder(t *testing.T) {
	history := NewBuffer(5)
	m := New(history)

	m.ObserveRun(run("r1", 4))
	m.ReadingsSent(models.DeviceFish, 3)
	m.ReadingsSent(models.DeviceFish, 1)
	m.EmitFailed(models.DevicePlant)
	m.SessionTransition(models.SessionCompleted)
	m.BreakerState("ingest", "open")

	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues("scheduler", "completed")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.readingsTotal.WithLabelValues("fish")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.emitFailures.WithLabelValues("plant")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sessionTransitions.WithLabelValues("completed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.breakerState.WithLabelValues("ingest")), 0)

	require.NotNil(t, history.Last())
	assert.Equal(t, "r1", history.Last().RunID)
}

func TestMetricsHandlers(t *testing.T) {
	m := New(nil)

	h := m.WrapHandler("/teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", http.NoBody))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("/teapot", "418")), 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "replay_http_requests_total")
}

func TestNop(*testing.T) {
	var r Recorder = Nop{}

	r.ObserveRun(&models.CronRun{})
	r.ReadingsSent(models.DeviceFish, 1)
	r.EmitFailed(models.DeviceFish)
	r.SessionTransition(models.SessionFailed)
}
