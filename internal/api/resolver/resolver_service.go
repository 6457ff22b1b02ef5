package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-alternative-pois/app/observability/metrics"
	"github.com/FACorreiaa/go-alternative-pois/internal/api/geodata"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Geocoder is the coordinate-lookup collaborator contract.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*geodata.GeocodeResult, error)
}

// TagFetcher is the tag-enrichment collaborator contract.
type TagFetcher interface {
	FetchTags(ctx context.Context, osmType string, osmID int64) (map[string]string, error)
}

// EvidenceFetcher is the textual-evidence collaborator contract.
type EvidenceFetcher interface {
	FetchEvidence(ctx context.Context, qid string) (*geodata.Evidence, error)
}

// TerrainSource provides the relief scalar used as the composer's terrain
// hint. Implemented by the feature estimator.
type TerrainSource interface {
	ReliefNorm(ctx context.Context, lat, lon float64) float64
}

// Relief at or above this value reads as mountainous terrain.
const steepReliefThreshold = 0.5

// Service defines the business logic contract for POI resolution.
type Service interface {
	Resolve(ctx context.Context, name, hint string) (*types.POIRecord, error)
	BatchResolve(ctx context.Context, requests []types.ResolveRequest) []*types.POIRecord
}

// ServiceImpl resolves place names into canonical records using the
// geocoding, enrichment and evidence collaborators.
type ServiceImpl struct {
	logger      *slog.Logger
	geocoder    Geocoder
	tagFetcher  TagFetcher
	evidence    EvidenceFetcher
	terrain     TerrainSource
	store       cache.Store
	group       singleflight.Group
	concurrency int
	cacheTTL    time.Duration
}

func NewServiceImpl(geocoder Geocoder, tagFetcher TagFetcher, evidence EvidenceFetcher, terrain TerrainSource, store cache.Store, concurrency int, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if concurrency <= 0 {
		concurrency = 4
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &ServiceImpl{
		logger:      logger,
		geocoder:    geocoder,
		tagFetcher:  tagFetcher,
		evidence:    evidence,
		terrain:     terrain,
		store:       store,
		concurrency: concurrency,
		cacheTTL:    cacheTTL,
	}
}

func resolutionKey(name, hint string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(name), " "))
	return "resolve:" + normalized + "|" + strings.ToLower(strings.TrimSpace(hint))
}

func cloneRecord(r *types.POIRecord) *types.POIRecord {
	out := *r
	out.Tags = make(map[string]string, len(r.Tags))
	for k, v := range r.Tags {
		out.Tags[k] = v
	}
	return &out
}

// Resolve turns a place name into a canonical record. A name the geocoder
// cannot place fails with types.ErrGeocodeNotFound; every other collaborator
// failure degrades locally. Concurrent duplicate lookups collapse to one
// upstream call.
func (s *ServiceImpl) Resolve(ctx context.Context, name, hint string) (*types.POIRecord, error) {
	ctx, span := otel.Tracer("ResolverService").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("poi.name", name),
		attribute.String("poi.hint", hint),
	))
	defer span.End()

	start := time.Now()
	key := resolutionKey(name, hint)

	if cached, ok := s.store.Get(ctx, key); ok {
		var record types.POIRecord
		if err := json.Unmarshal(cached, &record); err == nil {
			span.SetStatus(codes.Ok, "resolved from cache")
			return &record, nil
		}
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		if cached, ok := s.store.Get(ctx, key); ok {
			var record types.POIRecord
			if err := json.Unmarshal(cached, &record); err == nil {
				return &record, nil
			}
		}
		record, err := s.resolveRemote(ctx, name, hint)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(record); err == nil {
			s.store.Set(ctx, key, payload, s.cacheTTL)
		}
		return record, nil
	})

	metrics.Get().ResolutionDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		metrics.Get().ResolutionFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		return nil, err
	}
	metrics.Get().ResolutionsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "resolved")
	return cloneRecord(result.(*types.POIRecord)), nil
}

func (s *ServiceImpl) resolveRemote(ctx context.Context, name, hint string) (*types.POIRecord, error) {
	geo, err := s.geocoder.Geocode(ctx, name)
	if err != nil {
		if errors.Is(err, types.ErrGeocodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	}

	// Tag enrichment is best-effort: on failure fall back to whatever
	// extratags the geocoder returned, then to an empty set.
	var rawTags map[string]string
	if geo.OSMType != "" && geo.OSMID != 0 {
		rawTags, err = s.tagFetcher.FetchTags(ctx, geo.OSMType, geo.OSMID)
		if err != nil {
			s.logger.WarnContext(ctx, "tag enrichment degraded to extratags",
				slog.String("name", name), slog.Any("error", err))
			rawTags = nil
		}
	}
	tags := NormalizeStringTags(rawTags, geo.ExtraTags)

	category := ClassifyWithHint(tags, hint)

	var snippets []string
	if d := tags["description"]; d != "" {
		snippets = append(snippets, d)
	}
	if n := tags["note"]; n != "" {
		snippets = append(snippets, n)
	}

	terrain := TerrainContext{}
	qid := tags["wikidata"]
	if qid == "" {
		qid = geo.WikidataQID
	}
	if qid != "" && s.evidence != nil {
		if ev, err := s.evidence.FetchEvidence(ctx, qid); err != nil {
			s.logger.DebugContext(ctx, "evidence lookup failed",
				slog.String("qid", qid), slog.Any("error", err))
		} else {
			snippets = append(snippets, ev.Snippets...)
			terrain.Protected = ev.Protected
			terrain.Glacial = ev.Glacial
			terrain.CraterLake = ev.CraterLake
			terrain.Mountainous = ev.Mountainous
		}
	}
	if s.terrain != nil && !terrain.Mountainous {
		terrain.Mountainous = s.terrain.ReliefNorm(ctx, geo.Lat, geo.Lon) >= steepReliefThreshold
	}

	desc := ComposeDescription(geo.Name, category, tags, snippets, terrain)

	return &types.POIRecord{
		Name:     geo.Name,
		Lat:      geo.Lat,
		Lon:      geo.Lon,
		Category: category,
		Tags:     tags,
		Desc:     desc,
		Source:   "nominatim",
	}, nil
}

// BatchResolve applies Resolve to each request with bounded parallelism,
// preserving input order. Failures become nil entries; one bad name never
// aborts the batch.
func (s *ServiceImpl) BatchResolve(ctx context.Context, requests []types.ResolveRequest) []*types.POIRecord {
	ctx, span := otel.Tracer("ResolverService").Start(ctx, "BatchResolve", trace.WithAttributes(
		attribute.Int("batch.size", len(requests)),
	))
	defer span.End()

	results := make([]*types.POIRecord, len(requests))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, req := range requests {
		g.Go(func() error {
			record, err := s.Resolve(ctx, req.Name, req.Hint)
			if err != nil {
				s.logger.WarnContext(ctx, "batch entry failed to resolve",
					slog.String("name", req.Name), slog.Any("error", err))
				return nil
			}
			results[i] = record
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()
	span.SetStatus(codes.Ok, "batch resolved")
	return results
}
