package resolver

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-alternative-pois/internal/api/geodata"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// MockGeocoder is a mock implementation of Geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, name string) (*geodata.GeocodeResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geodata.GeocodeResult), args.Error(1)
}

// MockTagFetcher is a mock implementation of TagFetcher
type MockTagFetcher struct {
	mock.Mock
}

func (m *MockTagFetcher) FetchTags(ctx context.Context, osmType string, osmID int64) (map[string]string, error) {
	args := m.Called(ctx, osmType, osmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// MockEvidenceFetcher is a mock implementation of EvidenceFetcher
type MockEvidenceFetcher struct {
	mock.Mock
}

func (m *MockEvidenceFetcher) FetchEvidence(ctx context.Context, qid string) (*geodata.Evidence, error) {
	args := m.Called(ctx, qid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geodata.Evidence), args.Error(1)
}

// MockTerrainSource is a mock implementation of TerrainSource
type MockTerrainSource struct {
	mock.Mock
}

func (m *MockTerrainSource) ReliefNorm(ctx context.Context, lat, lon float64) float64 {
	args := m.Called(ctx, lat, lon)
	return args.Get(0).(float64)
}

func setupResolverTest() (*ServiceImpl, *MockGeocoder, *MockTagFetcher, *MockEvidenceFetcher, *MockTerrainSource) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	geocoder := new(MockGeocoder)
	tagFetcher := new(MockTagFetcher)
	evidence := new(MockEvidenceFetcher)
	terrain := new(MockTerrainSource)
	store := cache.NewMemoryStore(time.Minute)
	service := NewServiceImpl(geocoder, tagFetcher, evidence, terrain, store, 2, time.Minute, logger)
	return service, geocoder, tagFetcher, evidence, terrain
}

func eibseeGeocode() *geodata.GeocodeResult {
	return &geodata.GeocodeResult{
		Name:        "Eibsee",
		DisplayName: "Eibsee, Grainau, Bavaria, Germany",
		Lat:         47.4565,
		Lon:         10.9875,
		OSMType:     "W",
		OSMID:       24843216,
		ExtraTags:   map[string]string{"natural": "water"},
		WikidataQID: "Q668224",
	}
}

func TestServiceImpl_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("success with full enrichment", func(t *testing.T) {
		service, geocoder, tagFetcher, evidence, terrain := setupResolverTest()

		geocoder.On("Geocode", mock.Anything, "Eibsee").Return(eibseeGeocode(), nil).Once()
		tagFetcher.On("FetchTags", mock.Anything, "W", int64(24843216)).
			Return(map[string]string{"natural": "water", "water": "lake"}, nil).Once()
		evidence.On("FetchEvidence", mock.Anything, "Q668224").
			Return(&geodata.Evidence{Protected: true, Mountainous: true}, nil).Once()

		record, err := service.Resolve(ctx, "Eibsee", "")
		require.NoError(t, err)
		require.NotNil(t, record)

		assert.Equal(t, "Eibsee", record.Name)
		assert.Equal(t, types.CategoryLake, record.Category)
		assert.Equal(t, "nominatim", record.Source)
		assert.InDelta(t, 47.4565, record.Lat, 1e-9)
		assert.NotContains(t, record.Desc, "Eibsee")
		assert.NotEmpty(t, record.Desc)

		geocoder.AssertExpectations(t)
		tagFetcher.AssertExpectations(t)
		evidence.AssertExpectations(t)
		// Evidence already said mountainous, so the relief probe is skipped.
		terrain.AssertNotCalled(t, "ReliefNorm", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("geocode miss surfaces not found", func(t *testing.T) {
		service, geocoder, _, _, _ := setupResolverTest()

		geocoder.On("Geocode", mock.Anything, "Atlantis").Return(nil, types.ErrGeocodeNotFound).Once()

		record, err := service.Resolve(ctx, "Atlantis", "")
		require.Error(t, err)
		assert.Nil(t, record)
		assert.ErrorIs(t, err, types.ErrGeocodeNotFound)
		geocoder.AssertExpectations(t)
	})

	t.Run("tag enrichment failure degrades to extratags", func(t *testing.T) {
		service, geocoder, tagFetcher, evidence, terrain := setupResolverTest()

		geocoder.On("Geocode", mock.Anything, "Eibsee").Return(eibseeGeocode(), nil).Once()
		tagFetcher.On("FetchTags", mock.Anything, "W", int64(24843216)).
			Return(nil, types.ErrEnrichmentUnavailable).Once()
		evidence.On("FetchEvidence", mock.Anything, "Q668224").
			Return(nil, errors.New("wikidata timeout")).Once()
		terrain.On("ReliefNorm", mock.Anything, 47.4565, 10.9875).Return(0.0).Once()

		record, err := service.Resolve(ctx, "Eibsee", "")
		require.NoError(t, err)
		require.NotNil(t, record)

		// Geocoder extratags carried the water tag, so the category survives
		// the enrichment outage.
		assert.Equal(t, types.CategoryLake, record.Category)
		assert.NotEmpty(t, record.Desc)
		tagFetcher.AssertExpectations(t)
	})

	t.Run("second resolve is served from cache", func(t *testing.T) {
		service, geocoder, tagFetcher, evidence, terrain := setupResolverTest()

		geocoder.On("Geocode", mock.Anything, "Eibsee").Return(eibseeGeocode(), nil).Once()
		tagFetcher.On("FetchTags", mock.Anything, "W", int64(24843216)).
			Return(map[string]string{"natural": "water"}, nil).Once()
		evidence.On("FetchEvidence", mock.Anything, "Q668224").
			Return(&geodata.Evidence{}, nil).Once()
		terrain.On("ReliefNorm", mock.Anything, 47.4565, 10.9875).Return(0.7).Once()

		first, err := service.Resolve(ctx, "Eibsee", "")
		require.NoError(t, err)

		second, err := service.Resolve(ctx, "Eibsee", "")
		require.NoError(t, err)

		assert.Equal(t, first.Name, second.Name)
		assert.Equal(t, first.Desc, second.Desc)
		// Every collaborator was hit exactly once.
		geocoder.AssertExpectations(t)
		tagFetcher.AssertExpectations(t)
		evidence.AssertExpectations(t)
		terrain.AssertExpectations(t)
	})

	t.Run("cache key folds case and whitespace", func(t *testing.T) {
		assert.Equal(t, resolutionKey("Lago  di Braies", ""), resolutionKey("lago di braies", ""))
		assert.NotEqual(t, resolutionKey("Lago di Braies", "lake"), resolutionKey("Lago di Braies", ""))
	})
}

func TestServiceImpl_BatchResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("one failing entry yields nil without aborting", func(t *testing.T) {
		service, geocoder, tagFetcher, evidence, terrain := setupResolverTest()

		geocoder.On("Geocode", mock.Anything, "Eibsee").Return(eibseeGeocode(), nil).Once()
		geocoder.On("Geocode", mock.Anything, "Nowhere Falls").Return(nil, types.ErrGeocodeNotFound).Once()
		tagFetcher.On("FetchTags", mock.Anything, "W", int64(24843216)).
			Return(map[string]string{"natural": "water"}, nil).Once()
		evidence.On("FetchEvidence", mock.Anything, "Q668224").
			Return(&geodata.Evidence{}, nil).Once()
		terrain.On("ReliefNorm", mock.Anything, 47.4565, 10.9875).Return(0.0).Once()

		results := service.BatchResolve(ctx, []types.ResolveRequest{
			{Name: "Eibsee"},
			{Name: "Nowhere Falls"},
		})

		require.Len(t, results, 2)
		require.NotNil(t, results[0])
		assert.Equal(t, "Eibsee", results[0].Name)
		assert.Nil(t, results[1])
		geocoder.AssertExpectations(t)
	})

	t.Run("empty batch", func(t *testing.T) {
		service, _, _, _, _ := setupResolverTest()
		results := service.BatchResolve(ctx, nil)
		assert.Empty(t, results)
	})
}
