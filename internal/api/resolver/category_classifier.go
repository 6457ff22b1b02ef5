package resolver

import (
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

// rule maps a semantic predicate over the tag map to a category. Rules are
// evaluated in order and the first match wins, so specific rules (waterfall)
// must precede generic ones (any water tag).
type rule struct {
	category types.Category
	match    func(tags map[string]string) bool
}

var classifierRules = []rule{
	{types.CategoryWaterfall, func(t map[string]string) bool {
		return t["natural"] == "waterfall" || t["waterway"] == "waterfall"
	}},
	{types.CategoryLake, func(t map[string]string) bool {
		return t["natural"] == "water" || waterSubtypes[t["water"]]
	}},
	{types.CategoryBeach, func(t map[string]string) bool {
		return t["natural"] == "beach"
	}},
	{types.CategoryViewpoint, func(t map[string]string) bool {
		return t["tourism"] == "viewpoint" || t["natural"] == "peak" || t["natural"] == "cliff"
	}},
	{types.CategoryForest, func(t map[string]string) bool {
		return t["natural"] == "wood" || t["landuse"] == "forest"
	}},
	{types.CategoryPark, func(t map[string]string) bool {
		return t["leisure"] == "park" || t["leisure"] == "nature_reserve" ||
			t["boundary"] == "protected_area" || t["boundary"] == "national_park"
	}},
	{types.CategoryCastle, func(t map[string]string) bool {
		return t["historic"] == "castle" || t["historic"] == "fort"
	}},
	{types.CategoryChurch, func(t map[string]string) bool {
		return t["amenity"] == "place_of_worship" || t["building"] == "church" || t["building"] == "cathedral"
	}},
	{types.CategoryMuseum, func(t map[string]string) bool {
		return t["tourism"] == "museum"
	}},
}

// Classify infers a single coarse category from normalized tags. Pure and
// total: no rule match yields CategoryOther, never an error.
func Classify(tags map[string]string) types.Category {
	for _, r := range classifierRules {
		if r.match(tags) {
			return r.category
		}
	}
	return types.CategoryOther
}

// ClassifyWithHint honors a caller-supplied category hint only when the tags
// corroborate it; otherwise it falls back to plain rule order.
func ClassifyWithHint(tags map[string]string, hint string) types.Category {
	if hint != "" {
		hinted := types.Category(hint)
		for _, r := range classifierRules {
			if r.category == hinted && r.match(tags) {
				return hinted
			}
		}
	}
	return Classify(tags)
}
