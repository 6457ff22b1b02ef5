package similarity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// MockResolverService is a mock implementation of resolver.Service
type MockResolverService struct {
	mock.Mock
}

func (m *MockResolverService) Resolve(ctx context.Context, name, hint string) (*types.POIRecord, error) {
	args := m.Called(ctx, name, hint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.POIRecord), args.Error(1)
}

func (m *MockResolverService) BatchResolve(ctx context.Context, requests []types.ResolveRequest) []*types.POIRecord {
	args := m.Called(ctx, requests)
	return args.Get(0).([]*types.POIRecord)
}

func TestServiceImpl_FindAlternatives(t *testing.T) {
	ctx := context.Background()

	targets := []types.ResolveRequest{
		{Name: "Königssee"},
		{Name: "Nowhere Lake"},
	}
	candidates := []types.ResolveRequest{
		{Name: "Chiemsee"},
		{Name: "Walchensee"},
		{Name: "Tegernsee"},
	}
	req := types.AlternativesRequest{
		UserLat:    centerLat,
		UserLon:    centerLon,
		RadiusKm:   200,
		TopK:       5,
		Targets:    targets,
		Candidates: candidates,
	}

	t.Run("unresolvable target yields empty list without aborting", func(t *testing.T) {
		mockResolver := new(MockResolverService)
		mockResolver.On("BatchResolve", mock.Anything, targets).
			Return([]*types.POIRecord{lakeRecord("Königssee", 47.5553, 12.9862), nil}).Once()
		mockResolver.On("BatchResolve", mock.Anything, candidates).
			Return([]*types.POIRecord{
				lakeRecord("Chiemsee", 47.8811, 12.4744),
				lakeRecord("Walchensee", 47.5933, 11.3056),
				lakeRecord("Tegernsee", 47.7120, 11.7587),
			}).Once()

		service := NewServiceImpl(mockResolver, &fakeEmbedder{}, nil, cache.NewMemoryStore(time.Minute), Defaults{Alpha: 0.3}, testLogger())

		responses, err := service.FindAlternatives(ctx, req)
		require.NoError(t, err)
		require.Len(t, responses, 2)

		assert.Equal(t, "Königssee", responses[0].TargetName)
		assert.Len(t, responses[0].Alternatives, 3)
		for _, route := range responses[0].Alternatives {
			assert.Equal(t, "local_alternative", route.Destination.Source)
			assert.NotNil(t, route.ScenicWaypoints)
			assert.NotNil(t, route.RoutePath)
			assert.Equal(t, route.Destination.Score, route.Score)
		}

		assert.Equal(t, "Nowhere Lake", responses[1].TargetName)
		assert.Empty(t, responses[1].Alternatives)
		mockResolver.AssertExpectations(t)
	})

	t.Run("embedding outage is the only hard failure", func(t *testing.T) {
		mockResolver := new(MockResolverService)
		mockResolver.On("BatchResolve", mock.Anything, targets).
			Return([]*types.POIRecord{lakeRecord("Königssee", 47.5553, 12.9862), nil}).Once()
		mockResolver.On("BatchResolve", mock.Anything, candidates).
			Return([]*types.POIRecord{lakeRecord("Chiemsee", 47.8811, 12.4744), nil, nil}).Once()

		service := NewServiceImpl(mockResolver, failingEmbedder{}, nil, cache.NewMemoryStore(time.Minute), Defaults{}, testLogger())

		responses, err := service.FindAlternatives(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.Nil(t, responses)
	})

	t.Run("no resolvable candidates yields empty lists", func(t *testing.T) {
		mockResolver := new(MockResolverService)
		mockResolver.On("BatchResolve", mock.Anything, targets).
			Return([]*types.POIRecord{lakeRecord("Königssee", 47.5553, 12.9862), nil}).Once()
		mockResolver.On("BatchResolve", mock.Anything, candidates).
			Return([]*types.POIRecord{nil, nil, nil}).Once()

		service := NewServiceImpl(mockResolver, &fakeEmbedder{}, nil, cache.NewMemoryStore(time.Minute), Defaults{}, testLogger())

		responses, err := service.FindAlternatives(ctx, req)
		require.NoError(t, err)
		require.Len(t, responses, 2)
		assert.Empty(t, responses[0].Alternatives)
		assert.Empty(t, responses[1].Alternatives)
	})
}

func TestServiceImpl_FindForVideoPOIs_DeduplicatesCandidates(t *testing.T) {
	ctx := context.Background()

	ix := NewIndex(&fakeEmbedder{}, nil, cache.NewMemoryStore(time.Minute), 0, testLogger())
	// The same lake resolved twice under slightly different names but
	// different coordinates survives; identical records collapse.
	require.NoError(t, ix.Build(ctx, []*types.POIRecord{
		lakeRecord("Chiemsee", 47.8811, 12.4744),
		lakeRecord("Chiemsee", 47.8811, 12.4744),
		lakeRecord("Walchensee", 47.5933, 11.3056),
	}, centerLat, centerLon, 200))

	service := NewServiceImpl(new(MockResolverService), &fakeEmbedder{}, nil, cache.NewMemoryStore(time.Minute), Defaults{}, testLogger())

	responses := service.FindForVideoPOIs(ctx, ix, []string{"Königssee"}, []*types.POIRecord{lakeRecord("Königssee", 47.5553, 12.9862)}, 5)
	require.Len(t, responses, 1)

	names := make(map[string]int)
	for _, route := range responses[0].Alternatives {
		names[route.Destination.Name]++
	}
	assert.Equal(t, 1, names["Chiemsee"])
	assert.Equal(t, 1, names["Walchensee"])
}
