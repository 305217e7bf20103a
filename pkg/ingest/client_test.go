package ingest

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// testContext mirrors testing.T.Context (Go 1.24+): the context is
// canceled just before the test's Cleanup-registered functions run.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func testConfig(url string) *config.IngestConfig {
	return &config.IngestConfig{
		URL:               url,
		Timeout:           config.Duration(time.Second),
		RequestsPerSecond: 1000,
		Burst:             10,
		Breaker: config.BreakerConfig{
			MaxFailures: 2,
			OpenTimeout: config.Duration(time.Minute),
		},
	}
}

func TestSubmit(t *testing.T) {
	var got Payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/telemetry", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL + "/"))

	err := c.Submit(testContext(t), &Payload{
		APIKey:      "key",
		DeviceMac:   "AA:BB",
		ReadingType: models.DeviceFish,
		Readings:    []models.Reading{{Type: "ph", Value: 7.1, Unit: "pH", Timestamp: "t"}},
		Timestamp:   "t",
	})
	require.NoError(t, err)

	assert.Equal(t, "key", got.APIKey)
	assert.Equal(t, "AA:BB", got.DeviceMac)
	assert.Equal(t, models.DeviceFish, got.ReadingType)
	require.Len(t, got.Readings, 1)
	assert.InDelta(t, 7.1, got.Readings[0].Value, 1e-9)
}

func TestPurge(t *testing.T) {
	var got PurgeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL))

	require.NoError(t, c.Purge(testContext(t), &PurgeRequest{APIKey: "k", DeviceMac: "m", ReadingType: models.DevicePlant}))
	assert.Equal(t, models.DevicePlant, got.ReadingType)
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL))

	for i := 0; i < 5; i++ {
		err := c.Submit(testContext(t), &Payload{})
		require.ErrorIs(t, err, errClientStatus)
		assert.Contains(t, err.Error(), "bad api key")
	}

	assert.Equal(t, int32(5), hits.Load())
	assert.Equal(t, "closed", c.BreakerState())
}

func TestEncodeErrorsDoNotOpenBreaker(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL))

	tests := []struct {
		name  string
		value float64
	}{
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Submit(testContext(t), &Payload{
				Readings: []models.Reading{{Type: "ph", Value: tt.value}},
			})
			require.ErrorIs(t, err, errEncode)
		})
	}

	assert.Equal(t, int32(0), hits.Load())
	assert.Equal(t, "closed", c.BreakerState())
	require.NoError(t, c.Submit(testContext(t), &Payload{}))
	assert.Equal(t, int32(1), hits.Load())
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var states []string

	c := NewHTTPClient(testConfig(srv.URL), WithStateListener(func(name, state string) {
		assert.Equal(t, "ingest", name)

		states = append(states, state)
	}))

	require.ErrorIs(t, c.Submit(testContext(t), &Payload{}), errServerStatus)
	require.ErrorIs(t, c.Submit(testContext(t), &Payload{}), errServerStatus)

	err := c.Submit(testContext(t), &Payload{})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "open", c.BreakerState())
	assert.Equal(t, []string{"open"}, states)
}

func TestTransportErrorOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(testConfig(url))

	require.ErrorIs(t, c.Submit(testContext(t), &Payload{}), errRequest)
	require.ErrorIs(t, c.Submit(testContext(t), &Payload{}), errRequest)
	require.ErrorIs(t, c.Submit(testContext(t), &Payload{}), ErrUnavailable)
}
