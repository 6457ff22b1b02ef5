package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-alternative-pois/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-alternative-pois/internal/api/generative_ai"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// FeatureSource supplies environmental feature vectors for score blending.
type FeatureSource interface {
	Estimate(ctx context.Context, lat, lon float64) types.FeatureVector
}

// Entry is one indexed candidate: the owning record, its normalized
// embedding and coordinates duplicated for cheap distance checks.
type Entry struct {
	ID       int
	Record   *types.POIRecord
	Vector   []float32
	Lat      float64
	Lon      float64
	Features *types.FeatureVector
}

// Hit pairs an entry with its final blended score.
type Hit struct {
	Entry *Entry
	Score float64
}

// Two points closer than this (in degrees, each axis) count as the same
// place for self-exclusion.
const coordEpsilon = 1e-4

const embedBatchSize = 64

const embedCacheTTL = 30 * 24 * time.Hour

// Index is the in-memory vector index over a regional candidate pool.
// Build is a single-writer phase; once built the index is immutable and
// safe for concurrent queries.
type Index struct {
	logger   *slog.Logger
	embedder generativeAI.Embedder
	features FeatureSource
	store    cache.Store
	alpha    float64

	buildID    uuid.UUID
	centerLat  float64
	centerLon  float64
	radiusKm   float64
	entries    []*Entry
	byCategory map[types.Category][]*Entry

	buildMu sync.Mutex
	built   atomic.Bool
}

// NewIndex creates an unbuilt index. alpha is the feature-blend weight in
// [0,1]; 0 disables blending entirely.
func NewIndex(embedder generativeAI.Embedder, features FeatureSource, store cache.Store, alpha float64, logger *slog.Logger) *Index {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return &Index{
		logger:   logger,
		embedder: embedder,
		features: features,
		store:    store,
		alpha:    alpha,
	}
}

func (ix *Index) BuildID() uuid.UUID { return ix.buildID }
func (ix *Index) Len() int           { return len(ix.entries) }

func embedKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:8])
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// featureSimilarity maps the Euclidean distance between two bounded feature
// vectors into [0,1]; identical vectors score 1.
func featureSimilarity(a, b *types.FeatureVector) float64 {
	dr := a.ReliefNorm - b.ReliefNorm
	dw := a.WaterClarity - b.WaterClarity
	dg := a.Greenness - b.Greenness
	dn := a.Naturalness - b.Naturalness
	dist := math.Sqrt(dr*dr + dw*dw + dg*dg + dn*dn)
	return 1 - dist/2
}

// embedAll returns normalized vectors for texts, reusing the content-hash
// embedding cache and batching the misses through the collaborator.
func (ix *Index) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, text := range texts {
		if cached, ok := ix.store.Get(ctx, embedKey(text)); ok {
			var v []float32
			if err := json.Unmarshal(cached, &v); err == nil && len(v) > 0 {
				vectors[i] = v
				continue
			}
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}

	for start := 0; start < len(missing); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch, err := ix.embedder.EmbedBatch(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		for j, raw := range batch {
			pos := missingAt[start+j]
			normalized := l2Normalize(raw)
			vectors[pos] = normalized
			if encoded, err := json.Marshal(normalized); err == nil {
				ix.store.Set(ctx, embedKey(texts[pos]), encoded, embedCacheTTL)
			}
		}
	}
	return vectors, nil
}

// featuresFor returns the feature vector for a coordinate, or nil when no
// feature source is wired or every scalar came back neutral (no coverage).
func (ix *Index) featuresFor(ctx context.Context, lat, lon float64) *types.FeatureVector {
	if ix.features == nil {
		return nil
	}
	fv := ix.features.Estimate(ctx, lat, lon)
	if fv.IsNeutral() {
		return nil
	}
	return &fv
}

// Build embeds every candidate within radiusKm of the user center and
// populates the index. Candidates outside the radius are excluded here, not
// at query time, which bounds index size and makes the radius invariant
// structural. Build must finish before any query; calling it twice on the
// same index is an error.
func (ix *Index) Build(ctx context.Context, candidates []*types.POIRecord, centerLat, centerLon, radiusKm float64) error {
	ctx, span := otel.Tracer("SimilarityIndex").Start(ctx, "Build", trace.WithAttributes(
		attribute.Int("candidates.total", len(candidates)),
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	if ix.built.Load() {
		return fmt.Errorf("index %s is already built", ix.buildID)
	}

	start := time.Now()
	ix.buildID = uuid.New()
	ix.centerLat = centerLat
	ix.centerLon = centerLon
	ix.radiusKm = radiusKm

	var inRadius []*types.POIRecord
	for _, record := range candidates {
		if record == nil {
			continue
		}
		if HaversineKm(record.Lat, record.Lon, centerLat, centerLon) <= radiusKm {
			inRadius = append(inRadius, record)
		}
	}

	texts := make([]string, len(inRadius))
	for i, record := range inRadius {
		texts[i] = BuildText(record)
	}
	vectors, err := ix.embedAll(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return fmt.Errorf("build index: %w", err)
	}

	ix.entries = make([]*Entry, 0, len(inRadius))
	ix.byCategory = make(map[types.Category][]*Entry)
	for i, record := range inRadius {
		entry := &Entry{
			ID:       i,
			Record:   record,
			Vector:   vectors[i],
			Lat:      record.Lat,
			Lon:      record.Lon,
			Features: ix.featuresFor(ctx, record.Lat, record.Lon),
		}
		ix.entries = append(ix.entries, entry)
		coarse := CoarseCategory(record.Category)
		ix.byCategory[coarse] = append(ix.byCategory[coarse], entry)
	}

	ix.built.Store(true)
	metrics.Get().IndexBuildDurationSeconds.Record(ctx, time.Since(start).Seconds())
	ix.logger.InfoContext(ctx, "similarity index built",
		slog.String("build_id", ix.buildID.String()),
		slog.Int("entries", len(ix.entries)),
		slog.Int("excluded_by_radius", len(candidates)-len(inRadius)),
	)
	span.SetStatus(codes.Ok, "index built")
	return nil
}

// Query ranks indexed candidates against the record. Candidates start from
// the soft category-equivalent buckets and widen to the whole index when
// that set is smaller than topk. Results never include the query's own
// identity or a near-equal coordinate.
func (ix *Index) Query(ctx context.Context, record *types.POIRecord, topk int, excludeIDs map[int]bool) ([]Hit, error) {
	ctx, span := otel.Tracer("SimilarityIndex").Start(ctx, "Query", trace.WithAttributes(
		attribute.String("poi.category", string(record.Category)),
		attribute.Int("topk", topk),
	))
	defer span.End()

	if !ix.built.Load() || len(ix.entries) == 0 {
		span.SetStatus(codes.Error, "index empty")
		return nil, types.ErrIndexEmpty
	}
	metrics.Get().IndexQueriesTotal.Add(ctx, 1)

	qvecs, err := ix.embedAll(ctx, []string{BuildText(record)})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query embedding failed")
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	qvec := qvecs[0]
	qfeat := ix.featuresFor(ctx, record.Lat, record.Lon)

	excluded := func(entry *Entry) bool {
		if excludeIDs[entry.ID] {
			return true
		}
		return math.Abs(entry.Lat-record.Lat) < coordEpsilon && math.Abs(entry.Lon-record.Lon) < coordEpsilon
	}

	pool := make([]*Entry, 0, len(ix.entries))
	seen := make(map[int]bool)
	for _, coarse := range MatchingCategories(record.Category) {
		for _, entry := range ix.byCategory[coarse] {
			if !seen[entry.ID] && !excluded(entry) {
				seen[entry.ID] = true
				pool = append(pool, entry)
			}
		}
	}
	// Best-effort fill: widen to the full index rather than returning fewer
	// than requested. Exclusions are filtered before this count, so a query
	// whose own record sits in the pool still gets topk results when the
	// index can provide them.
	if len(pool) < topk {
		pool = pool[:0]
		for _, entry := range ix.entries {
			if !excluded(entry) {
				pool = append(pool, entry)
			}
		}
	}

	hits := make([]Hit, 0, len(pool))
	for _, entry := range pool {
		cosine := clamp01(dot(qvec, entry.Vector))
		score := cosine
		if ix.alpha > 0 && qfeat != nil && entry.Features != nil {
			score = (1-ix.alpha)*cosine + ix.alpha*featureSimilarity(qfeat, entry.Features)
		}
		hits = append(hits, Hit{Entry: entry, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		di := HaversineKm(hits[i].Entry.Lat, hits[i].Entry.Lon, ix.centerLat, ix.centerLon)
		dj := HaversineKm(hits[j].Entry.Lat, hits[j].Entry.Lon, ix.centerLat, ix.centerLon)
		if di != dj {
			return di < dj
		}
		return hits[i].Entry.ID < hits[j].Entry.ID
	})

	if len(hits) > topk {
		hits = hits[:topk]
	}
	span.SetStatus(codes.Ok, "query served")
	return hits, nil
}
