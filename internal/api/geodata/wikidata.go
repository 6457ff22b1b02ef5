package geodata

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var qidPattern = regexp.MustCompile(`^Q\d+$`)

// Wikidata instance-of classes that mark lakes of specific origin.
var (
	glacialLakeQIDs = map[string]bool{"Q23397": true}
	craterLakeQIDs  = map[string]bool{"Q107715": true}
)

// Evidence is what the description composer consumes: candidate text
// snippets plus boolean facts distilled from the entity graph.
type Evidence struct {
	Snippets    []string
	Glacial     bool
	CraterLake  bool
	Protected   bool
	Mountainous bool
}

// WikidataClient pulls entity data used to enrich scenic descriptions.
type WikidataClient struct {
	client  *Client
	baseURL string
	logger  *slog.Logger
}

func NewWikidataClient(client *Client, baseURL string, logger *slog.Logger) *WikidataClient {
	return &WikidataClient{client: client, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

type wikidataEntity struct {
	Labels       map[string]struct{ Value string `json:"value"` } `json:"labels"`
	Descriptions map[string]struct{ Value string `json:"value"` } `json:"descriptions"`
	Claims       map[string][]struct {
		Mainsnak struct {
			Datavalue struct {
				Value struct {
					ID string `json:"id"`
				} `json:"value"`
			} `json:"datavalue"`
		} `json:"mainsnak"`
	} `json:"claims"`
}

type wikidataResponse struct {
	Entities map[string]wikidataEntity `json:"entities"`
}

func (w *WikidataClient) fetchEntity(ctx context.Context, qid string) (*wikidataEntity, error) {
	if !qidPattern.MatchString(qid) {
		return nil, fmt.Errorf("invalid wikidata id %q", qid)
	}
	var resp wikidataResponse
	entityURL := fmt.Sprintf("%s/wiki/Special:EntityData/%s.json", w.baseURL, qid)
	if err := w.client.GetJSON(ctx, entityURL, nil, &resp); err != nil {
		return nil, err
	}
	ent, ok := resp.Entities[qid]
	if !ok {
		return nil, fmt.Errorf("wikidata entity %s missing from response", qid)
	}
	return &ent, nil
}

func (e *wikidataEntity) claimTargets(pids ...string) []string {
	var ids []string
	for _, pid := range pids {
		for _, claim := range e.Claims[pid] {
			if id := claim.Mainsnak.Datavalue.Value.ID; id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (e *wikidataEntity) hasInstance(qids map[string]bool) bool {
	for _, id := range e.claimTargets("P31") {
		if qids[id] {
			return true
		}
	}
	return false
}

func (e *wikidataEntity) englishLabel() string {
	if l, ok := e.Labels["en"]; ok {
		return l.Value
	}
	for _, l := range e.Labels {
		return l.Value
	}
	return ""
}

// FetchEvidence resolves the entity behind qid and distills description
// snippets plus terrain/protection facts. The located-in walk follows up to
// five neighbouring entities (mountain range, administrative area, park).
func (w *WikidataClient) FetchEvidence(ctx context.Context, qid string) (*Evidence, error) {
	ctx, span := otel.Tracer("GeodataClient").Start(ctx, "FetchEvidence", trace.WithAttributes(
		attribute.String("wikidata.qid", qid),
	))
	defer span.End()

	ent, err := w.fetchEntity(ctx, qid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "entity fetch failed")
		return nil, fmt.Errorf("wikidata evidence: %w", err)
	}

	ev := &Evidence{
		Glacial:    ent.hasInstance(glacialLakeQIDs),
		CraterLake: ent.hasInstance(craterLakeQIDs),
	}
	if d, ok := ent.Descriptions["en"]; ok && d.Value != "" {
		ev.Snippets = append(ev.Snippets, d.Value)
	}

	// Located-in walk: P3018 protected area, P131 admin entity, P706 terrain
	// feature, P361 part-of.
	neighbours := ent.claimTargets("P3018", "P131", "P706", "P361")
	if len(neighbours) > 5 {
		neighbours = neighbours[:5]
	}
	for _, id := range neighbours {
		neighbour, err := w.fetchEntity(ctx, id)
		if err != nil {
			w.logger.DebugContext(ctx, "wikidata neighbour fetch failed",
				slog.String("qid", id), slog.Any("error", err))
			continue
		}
		label := strings.ToLower(neighbour.englishLabel())
		if label == "" {
			continue
		}
		if strings.Contains(label, "national park") || strings.Contains(label, "protected") || strings.Contains(label, "park") {
			ev.Protected = true
		}
		if strings.Contains(label, "alps") || strings.Contains(label, "gebirge") || strings.Contains(label, "mountain") {
			ev.Mountainous = true
		}
	}

	span.SetStatus(codes.Ok, "evidence gathered")
	return ev, nil
}
