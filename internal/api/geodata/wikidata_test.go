package geodata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
)

func entityJSON(qid, body string) string {
	return fmt.Sprintf(`{"entities": {%q: %s}}`, qid, body)
}

func TestWikidataClient_FetchEvidence(t *testing.T) {
	ctx := context.Background()

	t.Run("glacial lake inside a national park", func(t *testing.T) {
		entities := map[string]string{
			// The lake itself: instance of glacial lake, located in Q1234.
			"Q156199": `{
				"labels": {"en": {"value": "Königssee"}},
				"descriptions": {"en": {"value": "lake in Berchtesgadener Land, Bavaria, Germany, known for its clear water and steep flanks"}},
				"claims": {
					"P31": [{"mainsnak": {"datavalue": {"value": {"id": "Q23397"}}}}],
					"P3018": [{"mainsnak": {"datavalue": {"value": {"id": "Q1234"}}}}],
					"P706": [{"mainsnak": {"datavalue": {"value": {"id": "Q5678"}}}}]
				}
			}`,
			"Q1234": `{"labels": {"en": {"value": "Berchtesgaden National Park"}}, "claims": {}}`,
			"Q5678": `{"labels": {"en": {"value": "Berchtesgaden Alps"}}, "claims": {}}`,
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for qid, body := range entities {
				if r.URL.Path == "/wiki/Special:EntityData/"+qid+".json" {
					w.Write([]byte(entityJSON(qid, body)))
					return
				}
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		wikidata := NewWikidataClient(newTestClient(cache.NewMemoryStore(time.Minute)), server.URL, testLogger())

		ev, err := wikidata.FetchEvidence(ctx, "Q156199")
		require.NoError(t, err)

		assert.True(t, ev.Glacial)
		assert.False(t, ev.CraterLake)
		assert.True(t, ev.Protected)
		assert.True(t, ev.Mountainous)
		require.Len(t, ev.Snippets, 1)
		assert.Contains(t, ev.Snippets[0], "clear water")
	})

	t.Run("entity without claims", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(entityJSON("Q1", `{"labels": {}, "claims": {}}`)))
		}))
		defer server.Close()

		wikidata := NewWikidataClient(newTestClient(cache.NewMemoryStore(time.Minute)), server.URL, testLogger())

		ev, err := wikidata.FetchEvidence(ctx, "Q1")
		require.NoError(t, err)
		assert.False(t, ev.Glacial)
		assert.False(t, ev.Protected)
		assert.False(t, ev.Mountainous)
		assert.Empty(t, ev.Snippets)
	})

	t.Run("failed neighbour lookups do not fail the evidence", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/wiki/Special:EntityData/Q2.json" {
				w.Write([]byte(entityJSON("Q2", `{
					"labels": {"en": {"value": "Some Lake"}},
					"claims": {"P131": [{"mainsnak": {"datavalue": {"value": {"id": "Q404"}}}}]}
				}`)))
				return
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		wikidata := NewWikidataClient(newTestClient(cache.NewMemoryStore(time.Minute)), server.URL, testLogger())

		ev, err := wikidata.FetchEvidence(ctx, "Q2")
		require.NoError(t, err)
		assert.False(t, ev.Protected)
	})

	t.Run("malformed qid rejected before any request", func(t *testing.T) {
		wikidata := NewWikidataClient(newTestClient(cache.NewMemoryStore(time.Minute)), "http://unused", testLogger())

		_, err := wikidata.FetchEvidence(ctx, "not-a-qid")
		assert.Error(t, err)
	})
}
