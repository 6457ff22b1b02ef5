package similarity

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-alternative-pois/internal/api/generative_ai"
	"github.com/FACorreiaa/go-alternative-pois/internal/api/resolver"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Defaults configure the finder when a request leaves the knobs unset.
type Defaults struct {
	Alpha    float64
	RadiusKm float64
	TopK     int
}

// Service defines the business logic contract for alternative discovery.
type Service interface {
	FindAlternatives(ctx context.Context, req types.AlternativesRequest) ([]types.AlternativesResponse, error)
	FindForVideoPOIs(ctx context.Context, ix *Index, names []string, resolved []*types.POIRecord, topkEach int) []types.AlternativesResponse
}

// ServiceImpl orchestrates the full pipeline: resolve the target and
// candidate names, build a session index and return ranked alternatives per
// target.
type ServiceImpl struct {
	logger   *slog.Logger
	resolver resolver.Service
	embedder generativeAI.Embedder
	features FeatureSource
	store    cache.Store
	defaults Defaults
}

func NewServiceImpl(res resolver.Service, embedder generativeAI.Embedder, features FeatureSource, store cache.Store, defaults Defaults, logger *slog.Logger) *ServiceImpl {
	if defaults.RadiusKm <= 0 {
		defaults.RadiusKm = 200
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 5
	}
	return &ServiceImpl{
		logger:   logger,
		resolver: res,
		embedder: embedder,
		features: features,
		store:    store,
		defaults: defaults,
	}
}

// FindAlternatives resolves everything, builds the session index and runs
// one query per target. The only hard failure is an unusable embedding
// collaborator; per-target problems degrade to empty alternative lists.
func (s *ServiceImpl) FindAlternatives(ctx context.Context, req types.AlternativesRequest) ([]types.AlternativesResponse, error) {
	ctx, span := otel.Tracer("AlternativeFinder").Start(ctx, "FindAlternatives", trace.WithAttributes(
		attribute.Int("targets.count", len(req.Targets)),
		attribute.Int("candidates.count", len(req.Candidates)),
	))
	defer span.End()

	radius := req.RadiusKm
	if radius <= 0 {
		radius = s.defaults.RadiusKm
	}
	topk := req.TopK
	if topk <= 0 {
		topk = s.defaults.TopK
	}
	alpha := s.defaults.Alpha
	if req.Alpha != nil {
		alpha = *req.Alpha
	}

	resolvedTargets := s.resolver.BatchResolve(ctx, req.Targets)
	resolvedCandidates := s.resolver.BatchResolve(ctx, req.Candidates)

	candidates := make([]*types.POIRecord, 0, len(resolvedCandidates))
	for _, record := range resolvedCandidates {
		if record != nil {
			candidates = append(candidates, record)
		}
	}

	ix := NewIndex(s.embedder, s.features, s.store, alpha, s.logger)
	if err := ix.Build(ctx, candidates, req.UserLat, req.UserLon, radius); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index build failed")
		return nil, err
	}

	names := make([]string, len(req.Targets))
	for i, target := range req.Targets {
		names[i] = target.Name
	}
	responses := s.FindForVideoPOIs(ctx, ix, names, resolvedTargets, topk)
	span.SetStatus(codes.Ok, "alternatives found")
	return responses, nil
}

// FindForVideoPOIs queries the index for each resolved record. Entries that
// failed to resolve (nil) and per-query failures both yield an empty
// alternatives list for that target, never an aborted batch.
func (s *ServiceImpl) FindForVideoPOIs(ctx context.Context, ix *Index, names []string, resolved []*types.POIRecord, topkEach int) []types.AlternativesResponse {
	ctx, span := otel.Tracer("AlternativeFinder").Start(ctx, "FindForVideoPOIs", trace.WithAttributes(
		attribute.Int("targets.count", len(resolved)),
		attribute.Int("topk_each", topkEach),
	))
	defer span.End()

	responses := make([]types.AlternativesResponse, 0, len(resolved))
	for i, record := range resolved {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if record == nil {
			responses = append(responses, types.AlternativesResponse{
				TargetName:   name,
				Alternatives: []types.AlternativeRoute{},
			})
			continue
		}
		if name == "" {
			name = record.Name
		}

		hits, err := ix.Query(ctx, record, topkEach, nil)
		if err != nil {
			if !errors.Is(err, types.ErrIndexEmpty) {
				s.logger.WarnContext(ctx, "similarity query failed",
					slog.String("target", name), slog.Any("error", err))
			}
			responses = append(responses, types.AlternativesResponse{
				TargetName:   name,
				Alternatives: []types.AlternativeRoute{},
			})
			continue
		}

		routes := make([]types.AlternativeRoute, 0, len(hits))
		seen := make(map[string]bool)
		for _, hit := range hits {
			rec := hit.Entry.Record
			key := dedupKey(rec)
			if seen[key] {
				continue
			}
			seen[key] = true
			destination := types.ScoredPOI{
				Name:     rec.Name,
				Lat:      rec.Lat,
				Lon:      rec.Lon,
				Category: rec.Category,
				Source:   "local_alternative",
				Score:    hit.Score,
				Tags:     rec.Tags,
			}
			routes = append(routes, types.AlternativeRoute{
				Destination:     destination,
				ScenicWaypoints: []types.ScoredPOI{},
				Score:           hit.Score,
				RoutePath:       [][2]float64{},
			})
		}
		responses = append(responses, types.AlternativesResponse{
			TargetName:   name,
			Alternatives: routes,
		})
	}
	span.SetStatus(codes.Ok, "batch served")
	return responses
}

// dedupKey folds near-identical records (same name, ~11m coordinate grid)
// so a duplicated candidate shows up once per target.
func dedupKey(r *types.POIRecord) string {
	lat := math.Round(r.Lat*1e4) / 1e4
	lon := math.Round(r.Lon*1e4) / 1e4
	return r.Name + "|" + string(r.Category) + "|" +
		strconv.FormatFloat(lat, 'f', 4, 64) + "|" +
		strconv.FormatFloat(lon, 'f', 4, 64)
}
