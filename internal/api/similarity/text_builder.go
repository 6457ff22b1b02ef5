package similarity

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// Tags that add noise rather than meaning to the embedding text.
var noisyTags = map[string]bool{
	"source":     true,
	"check_date": true,
	"wikidata":   true,
	"wikipedia":  true,
	"website":    true,
	"image":      true,
	"note":       true,
	"start_date": true,
	"operator":   true,
	"phone":      true,
	"email":      true,
	"addr:full":  true,
}

// Tag key prefixes that carry the place's proper name and would defeat the
// name-free embedding design.
var namePrefixes = []string{"name", "alt_name", "official_name", "old_name", "int_name", "loc_name", "contact:"}

// Longest serialized tag value; longer ones get cut to keep embedding input
// bounded.
const maxTagValueLen = 48

var defaultPhrases = map[types.Category]string{
	types.CategoryLake:      "clear waters, forest-lined shores, alpine setting",
	types.CategoryWaterfall: "vertical drop, rocky gorge, steady plunge",
	types.CategoryBeach:     "sandy shore, gentle surf, unspoiled feel",
	types.CategoryViewpoint: "elevated panorama, distant peaks, wide vistas",
	types.CategoryPark:      "protected nature, woodland trails, quiet atmosphere",
	types.CategoryForest:    "dense tree cover, shaded paths, birdsong",
	types.CategoryCastle:    "historic walls, hilltop site, scenic surroundings",
	types.CategoryChurch:    "landmark spire, heritage architecture, scenic setting",
	types.CategoryMuseum:    "regional heritage, curated exhibits, cultural focus",
	types.CategoryOther:     "scenic natural site, tranquil setting",
}

// truncateTagValue cuts a value to at most maxTagValueLen bytes without
// splitting a multi-byte rune.
func truncateTagValue(value string) string {
	if len(value) <= maxTagValueLen {
		return value
	}
	cut := maxTagValueLen
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

func skippedKey(key string) bool {
	if noisyTags[key] {
		return true
	}
	for _, prefix := range namePrefixes {
		if key == prefix || strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// BuildText renders a record into the exact string fed to the embedding
// model: category marker, stable-ordered tags and the name-free description.
// The record's Name never appears in the output.
func BuildText(record *types.POIRecord) string {
	category := CoarseCategory(record.Category)
	lowerName := strings.ToLower(strings.TrimSpace(record.Name))

	keys := make([]string, 0, len(record.Tags))
	for key := range record.Tags {
		if skippedKey(key) {
			continue
		}
		value := record.Tags[key]
		if lowerName != "" && strings.Contains(strings.ToLower(value), lowerName) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+truncateTagValue(record.Tags[key]))
	}

	desc := strings.TrimSpace(record.Desc)
	if desc == "" {
		desc = defaultPhrases[category]
	}

	text := fmt.Sprintf("[CATEGORY: %s] [TAGS: %s] — %s", category, strings.Join(pairs, "; "), desc)
	return strings.ToLower(text)
}
