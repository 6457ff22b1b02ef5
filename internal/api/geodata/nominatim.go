package geodata

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// GeocodeResult is the top Nominatim hit for a name, carrying everything the
// resolver needs downstream: coordinates, OSM identity for tag enrichment and
// whatever extratags came back for the degraded path.
type GeocodeResult struct {
	Name        string
	DisplayName string
	Lat         float64
	Lon         float64
	OSMType     string // single letter: N, W or R
	OSMID       int64
	ExtraTags   map[string]string
	WikidataQID string
}

type nominatimHit struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	OSMType     string            `json:"osm_type"`
	OSMID       int64             `json:"osm_id"`
	DisplayName string            `json:"display_name"`
	ExtraTags   map[string]string `json:"extratags"`
	NameDetails map[string]string `json:"namedetails"`
}

// NominatimClient resolves free-form place names to coordinates.
type NominatimClient struct {
	client    *Client
	searchURL string
	logger    *slog.Logger
}

func NewNominatimClient(client *Client, searchURL string, logger *slog.Logger) *NominatimClient {
	return &NominatimClient{client: client, searchURL: searchURL, logger: logger}
}

// Geocode returns the best match for name or types.ErrGeocodeNotFound.
func (n *NominatimClient) Geocode(ctx context.Context, name string) (*GeocodeResult, error) {
	ctx, span := otel.Tracer("GeodataClient").Start(ctx, "Geocode", trace.WithAttributes(
		attribute.String("poi.name", name),
	))
	defer span.End()

	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "0")
	params.Set("extratags", "1")
	params.Set("namedetails", "1")

	var hits []nominatimHit
	if err := n.client.GetJSON(ctx, n.searchURL, params, &hits); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Nominatim request failed")
		return nil, fmt.Errorf("nominatim search: %w", err)
	}
	if len(hits) == 0 {
		span.SetStatus(codes.Error, "no match")
		return nil, fmt.Errorf("%w: %q", types.ErrGeocodeNotFound, name)
	}

	hit := hits[0]
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim returned bad latitude %q: %w", hit.Lat, err)
	}
	lon, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim returned bad longitude %q: %w", hit.Lon, err)
	}

	resolved := hit.NameDetails["name"]
	if resolved == "" {
		resolved = strings.SplitN(hit.DisplayName, ",", 2)[0]
	}

	osmType := ""
	if hit.OSMType != "" {
		osmType = strings.ToUpper(hit.OSMType[:1])
	}

	result := &GeocodeResult{
		Name:        resolved,
		DisplayName: hit.DisplayName,
		Lat:         lat,
		Lon:         lon,
		OSMType:     osmType,
		OSMID:       hit.OSMID,
		ExtraTags:   hit.ExtraTags,
		WikidataQID: hit.ExtraTags["wikidata"],
	}
	span.SetStatus(codes.Ok, "geocoded")
	return result, nil
}
