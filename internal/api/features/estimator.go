// Package features converts coordinates into normalized environmental
// scalars (relief, water clarity, greenness, naturalness) from optional
// raster/index collaborators. Every probe degrades to the neutral 0.0 when
// its source is unset or unreachable; running without any configured source
// is a normal operating mode.
package features

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-alternative-pois/internal/api/geodata"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// Config holds the optional raster endpoints. Empty endpoints disable the
// corresponding scalar.
type Config struct {
	DEMEndpoint       string // elevation model, drives relief_norm
	NDWIEndpoint      string // water spectral index, drives water_clarity
	NDVIEndpoint      string // vegetation spectral index, drives greenness
	LandcoverEndpoint string // land-cover classes, drives naturalness
	Token             string
	ProbeTimeout      time.Duration
	CacheTTL          time.Duration
}

// Estimator implements the four-scalar feature lookup.
type Estimator struct {
	cfg    Config
	client *geodata.Client
	store  cache.Store
	logger *slog.Logger
}

func NewEstimator(cfg Config, client *geodata.Client, store cache.Store, logger *slog.Logger) *Estimator {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 20 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}
	return &Estimator{cfg: cfg, client: client, store: store, logger: logger}
}

// Tile payloads below this size carry no signal (empty or error tiles).
const minTileBytes = 1000

// Payload size above the floor saturates the scalar at this many bytes.
const tileSaturationBytes = 64 * 1024

// Estimate returns the feature vector for a coordinate. The four probes run
// concurrently and independently; a failing source zeroes only its own
// scalar. Estimate never returns an error.
func (e *Estimator) Estimate(ctx context.Context, lat, lon float64) types.FeatureVector {
	ctx, span := otel.Tracer("FeatureEstimator").Start(ctx, "Estimate", trace.WithAttributes(
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lon", lon),
	))
	defer span.End()

	var fv types.FeatureVector
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { fv.ReliefNorm = e.probe(ctx, "relief", e.cfg.DEMEndpoint, lat, lon); return nil })
	g.Go(func() error { fv.WaterClarity = e.probe(ctx, "water_clarity", e.cfg.NDWIEndpoint, lat, lon); return nil })
	g.Go(func() error { fv.Greenness = e.probe(ctx, "greenness", e.cfg.NDVIEndpoint, lat, lon); return nil })
	g.Go(func() error { fv.Naturalness = e.probe(ctx, "naturalness", e.cfg.LandcoverEndpoint, lat, lon); return nil })
	_ = g.Wait()

	span.SetStatus(codes.Ok, "features estimated")
	return fv
}

// ReliefNorm exposes the relief scalar alone; the resolver uses it as the
// composer's terrain hint.
func (e *Estimator) ReliefNorm(ctx context.Context, lat, lon float64) float64 {
	return e.probe(ctx, "relief", e.cfg.DEMEndpoint, lat, lon)
}

// probe requests one small tile around the coordinate and scales payload
// size into [0,1]. Richer terrain/vegetation renders into larger tiles, so
// payload size is a cheap proxy for signal strength; absence of coverage
// returns empty or tiny tiles.
func (e *Estimator) probe(ctx context.Context, scalar, endpoint string, lat, lon float64) float64 {
	if endpoint == "" {
		return 0
	}

	key := fmt.Sprintf("feature:%s:%.4f:%.4f", scalar, lat, lon)
	if cached, ok := e.store.Get(ctx, key); ok {
		var v float64
		if err := json.Unmarshal(cached, &v); err == nil {
			return v
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("REQUEST", "GetMap")
	params.Set("VERSION", "1.3.0")
	params.Set("CRS", "EPSG:4326")
	params.Set("BBOX", fmt.Sprintf("%f,%f,%f,%f", lat-0.02, lon-0.02, lat+0.02, lon+0.02))
	params.Set("WIDTH", "128")
	params.Set("HEIGHT", "128")
	params.Set("FORMAT", "image/png")
	if e.cfg.Token != "" {
		params.Set("AUTH", e.cfg.Token)
	}

	payload, err := e.client.GetRaw(ctx, endpoint, params)
	if err != nil {
		e.logger.DebugContext(ctx, "feature probe degraded to neutral",
			slog.String("scalar", scalar), slog.Any("error", fmt.Errorf("%w: %s", types.ErrFeatureSourceUnavailable, err)))
		return 0
	}

	value := scaleTilePayload(len(payload))
	if encoded, err := json.Marshal(value); err == nil {
		e.store.Set(ctx, key, encoded, e.cfg.CacheTTL)
	}
	return value
}

func scaleTilePayload(size int) float64 {
	if size <= minTileBytes {
		return 0
	}
	v := float64(size-minTileBytes) / float64(tileSaturationBytes-minTileBytes)
	if v > 1 {
		return 1
	}
	return v
}
