package similarity

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

func TestBuildText_NameNeverLeaks(t *testing.T) {
	record := &types.POIRecord{
		Name:     "Walchensee",
		Category: types.CategoryLake,
		Tags: map[string]string{
			"natural":   "water",
			"water":     "lake",
			"name":      "Walchensee",
			"name:de":   "Walchensee",
			"alt_name":  "Walchen Lake",
			"operator":  "Gemeinde Walchensee",
			"wikipedia": "de:Walchensee",
		},
		Desc: "A deep alpine lake with clear waters and forested slopes.",
	}

	text := BuildText(record)

	assert.NotContains(t, text, "walchensee")
	assert.Contains(t, text, "[category: lake]")
	assert.Contains(t, text, "natural=water")
	assert.Contains(t, text, "a deep alpine lake")
}

func TestBuildText_SkipsNoisyAndNameValuedTags(t *testing.T) {
	record := &types.POIRecord{
		Name:     "Eibsee",
		Category: types.CategoryLake,
		Tags: map[string]string{
			"natural":     "water",
			"website":     "https://example.com",
			"wikidata":    "Q668224",
			"description": "Small lake below the Eibsee cable car station",
		},
		Desc: "Clear green waters below steep rock faces.",
	}

	text := BuildText(record)

	assert.NotContains(t, text, "website")
	assert.NotContains(t, text, "wikidata")
	// The description tag value mentions the place name, so it is dropped.
	assert.NotContains(t, text, "cable car")
	assert.NotContains(t, text, "eibsee")
}

func TestBuildText_DeterministicTagOrder(t *testing.T) {
	record := &types.POIRecord{
		Name:     "Tegernsee",
		Category: types.CategoryLake,
		Tags: map[string]string{
			"natural": "water",
			"water":   "lake",
			"sport":   "swimming",
			"boat":    "yes",
		},
		Desc: "A lake ringed by low wooded hills.",
	}

	first := BuildText(record)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildText(record))
	}
	// Keys appear in lexicographic order.
	assert.Less(t, strings.Index(first, "boat="), strings.Index(first, "natural="))
	assert.Less(t, strings.Index(first, "natural="), strings.Index(first, "sport="))
}

func TestBuildText_DefaultPhraseWhenDescMissing(t *testing.T) {
	record := &types.POIRecord{
		Name:     "Somewhere",
		Category: types.CategoryWaterfall,
		Tags:     map[string]string{"natural": "waterfall"},
	}

	text := BuildText(record)

	assert.Contains(t, text, "[category: waterfall]")
	assert.Contains(t, text, "vertical drop")
}

func TestBuildText_TruncatesLongValues(t *testing.T) {
	record := &types.POIRecord{
		Name:     "X",
		Category: types.CategoryOther,
		Tags:     map[string]string{"inscription": strings.Repeat("a", 500)},
		Desc:     "A quiet place worth a stop.",
	}

	text := BuildText(record)
	assert.Contains(t, text, "inscription="+strings.Repeat("a", maxTagValueLen))
	assert.NotContains(t, text, strings.Repeat("a", maxTagValueLen+1))
}

func TestBuildText_TruncationKeepsValidUTF8(t *testing.T) {
	// One ASCII byte followed by two-byte runes puts the byte cut mid-rune;
	// truncation must back up to the previous rune boundary.
	record := &types.POIRecord{
		Name:     "X",
		Category: types.CategoryOther,
		Tags:     map[string]string{"inscription": "a" + strings.Repeat("ä", 30)},
		Desc:     "A quiet place worth a stop.",
	}

	text := BuildText(record)
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, "inscription=a"+strings.Repeat("ä", 23))
	assert.NotContains(t, text, strings.Repeat("ä", 24))
}
