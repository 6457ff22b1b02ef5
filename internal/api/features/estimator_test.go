package features

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-alternative-pois/internal/api/geodata"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestEstimator(cfg Config) *Estimator {
	store := cache.NewMemoryStore(time.Minute)
	client := geodata.NewClient(geodata.ClientConfig{Timeout: 5 * time.Second}, store, testLogger())
	return NewEstimator(cfg, client, store, testLogger())
}

func TestEstimator_NoEndpointsConfigured(t *testing.T) {
	e := newTestEstimator(Config{})

	fv := e.Estimate(context.Background(), 47.55, 12.98)

	assert.True(t, fv.IsNeutral())
	assert.Zero(t, e.ReliefNorm(context.Background(), 47.55, 12.98))
}

func TestEstimator_ScalesTilePayload(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "WMS", r.URL.Query().Get("SERVICE"))
		assert.Equal(t, "GetMap", r.URL.Query().Get("REQUEST"))
		assert.Contains(t, r.URL.Query().Get("BBOX"), ",")
		w.Write([]byte(strings.Repeat("x", 33*1024)))
	}))
	defer server.Close()

	e := newTestEstimator(Config{DEMEndpoint: server.URL})

	relief := e.ReliefNorm(context.Background(), 47.55, 12.98)
	require.Greater(t, relief, 0.0)
	require.Less(t, relief, 1.0)

	// Only the relief probe has a source; the other scalars stay neutral.
	fv := e.Estimate(context.Background(), 47.55, 12.98)
	assert.Equal(t, relief, fv.ReliefNorm)
	assert.Zero(t, fv.WaterClarity)
	assert.Zero(t, fv.Greenness)
	assert.Zero(t, fv.Naturalness)

	// Both calls shared one cached probe.
	assert.Equal(t, int64(1), hits.Load())
}

func TestEstimator_TinyTileMeansNoCoverage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("empty-tile"))
	}))
	defer server.Close()

	e := newTestEstimator(Config{NDVIEndpoint: server.URL})

	fv := e.Estimate(context.Background(), 47.55, 12.98)
	assert.Zero(t, fv.Greenness)
}

func TestEstimator_SourceFailureDegradesToNeutral(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such layer", http.StatusNotFound)
	}))
	defer server.Close()

	e := newTestEstimator(Config{
		DEMEndpoint:  server.URL,
		ProbeTimeout: 2 * time.Second,
	})

	fv := e.Estimate(context.Background(), 47.55, 12.98)
	assert.True(t, fv.IsNeutral())
}

func TestScaleTilePayload(t *testing.T) {
	assert.Zero(t, scaleTilePayload(0))
	assert.Zero(t, scaleTilePayload(minTileBytes))
	assert.Greater(t, scaleTilePayload(minTileBytes+1), 0.0)
	assert.Equal(t, 1.0, scaleTilePayload(tileSaturationBytes))
	assert.Equal(t, 1.0, scaleTilePayload(10*tileSaturationBytes))
}
