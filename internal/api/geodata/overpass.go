package geodata

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

var osmTypeMap = map[string]string{"N": "node", "W": "way", "R": "relation"}

// OverpassClient fetches the full tag set for a known OSM feature. It is a
// best-effort enrichment source: callers degrade to an empty tag set when it
// fails.
type OverpassClient struct {
	client *Client
	apiURL string
	logger *slog.Logger
}

func NewOverpassClient(client *Client, apiURL string, logger *slog.Logger) *OverpassClient {
	return &OverpassClient{client: client, apiURL: apiURL, logger: logger}
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// FetchTags returns the tag map for the given OSM feature. Failures wrap
// types.ErrEnrichmentUnavailable so the resolver can recover locally.
func (o *OverpassClient) FetchTags(ctx context.Context, osmType string, osmID int64) (map[string]string, error) {
	ctx, span := otel.Tracer("GeodataClient").Start(ctx, "FetchTags", trace.WithAttributes(
		attribute.String("osm.type", osmType),
		attribute.Int64("osm.id", osmID),
	))
	defer span.End()

	kind, ok := osmTypeMap[osmType]
	if !ok {
		err := fmt.Errorf("%w: unsupported OSM type %q", types.ErrEnrichmentUnavailable, osmType)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported OSM type")
		return nil, err
	}

	form := url.Values{}
	form.Set("data", fmt.Sprintf("[out:json][timeout:25]; %s(%d); out tags;", kind, osmID))

	var resp overpassResponse
	if err := o.client.PostForm(ctx, o.apiURL, form, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Overpass request failed")
		return nil, fmt.Errorf("%w: %s", types.ErrEnrichmentUnavailable, err)
	}

	for _, el := range resp.Elements {
		if len(el.Tags) > 0 {
			span.SetStatus(codes.Ok, "tags fetched")
			return el.Tags, nil
		}
	}
	span.SetStatus(codes.Ok, "feature has no tags")
	return map[string]string{}, nil
}
