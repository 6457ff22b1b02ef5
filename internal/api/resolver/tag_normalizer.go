package resolver

import (
	"fmt"
	"strings"
)

// waterSubtypes are the water= values that imply a standing water body.
var waterSubtypes = map[string]bool{
	"lake":      true,
	"lagoon":    true,
	"reservoir": true,
	"pond":      true,
	"fjord":     true,
}

// NormalizeTags merges raw tag maps from one or more geodata collaborators
// into a single string-valued map. Earlier sources win on key conflicts, so
// output is deterministic for a fixed collaborator call order. Known
// duplicate vocabularies get a canonical twin added (never overwriting an
// existing value); unknown keys pass through unchanged.
func NormalizeTags(sources ...map[string]interface{}) map[string]string {
	merged := make(map[string]string)
	for _, source := range sources {
		for key, raw := range source {
			if raw == nil {
				continue
			}
			value := strings.TrimSpace(fmt.Sprint(raw))
			if value == "" {
				continue
			}
			if _, exists := merged[key]; !exists {
				merged[key] = value
			}
		}
	}
	canonicalize(merged)
	return merged
}

// NormalizeStringTags is NormalizeTags for sources that are already
// string-valued, e.g. OSM tag maps.
func NormalizeStringTags(sources ...map[string]string) map[string]string {
	converted := make([]map[string]interface{}, 0, len(sources))
	for _, source := range sources {
		m := make(map[string]interface{}, len(source))
		for k, v := range source {
			m[k] = v
		}
		converted = append(converted, m)
	}
	return NormalizeTags(converted...)
}

// canonicalize adds the canonical spelling for concepts that OSM encodes
// under two vocabularies. Existing values are never overwritten.
func canonicalize(tags map[string]string) {
	// waterway=waterfall and natural=waterfall describe the same feature.
	if tags["waterway"] == "waterfall" {
		if _, ok := tags["natural"]; !ok {
			tags["natural"] = "waterfall"
		}
	}
	// water=<subtype> implies natural=water.
	if waterSubtypes[tags["water"]] {
		if _, ok := tags["natural"]; !ok {
			tags["natural"] = "water"
		}
	}
}
