// Package similarity holds the embedding-text builder, the in-memory vector
// index and the alternative finder orchestration.
package similarity

import "github.com/FACorreiaa/go-alternative-pois/internal/types"

// categoryEquiv is the soft-equivalence table: for each coarse category, the
// subtype names considered interchangeable with it when gating candidates.
// This is the concrete rendition of the informal "lake ≈ lagoon ≈ reservoir"
// examples; DESIGN.md documents the choice.
var categoryEquiv = map[types.Category][]string{
	types.CategoryLake:      {"lake", "lagoon", "reservoir", "pond", "fjord", "glacial_lake", "crater_lake"},
	types.CategoryWaterfall: {"waterfall", "cascade"},
	types.CategoryBeach:     {"beach", "bay", "shore", "coastline"},
	types.CategoryViewpoint: {"viewpoint", "peak", "summit", "overlook", "cliff"},
	types.CategoryPark:      {"park", "protected_area", "nature_reserve", "forest"},
	types.CategoryForest:    {"forest", "wood", "nature_reserve"},
	types.CategoryCastle:    {"castle", "fortress"},
	types.CategoryChurch:    {"church", "cathedral", "basilica", "monastery"},
	types.CategoryMuseum:    {"museum"},
	types.CategoryOther:     {"other"},
}

// subtypeToCoarse folds subtype spellings back onto the closed coarse set.
var subtypeToCoarse = map[string]types.Category{
	"lagoon":         types.CategoryLake,
	"reservoir":      types.CategoryLake,
	"pond":           types.CategoryLake,
	"fjord":          types.CategoryLake,
	"glacial_lake":   types.CategoryLake,
	"crater_lake":    types.CategoryLake,
	"cascade":        types.CategoryWaterfall,
	"bay":            types.CategoryBeach,
	"shore":          types.CategoryBeach,
	"coastline":      types.CategoryBeach,
	"peak":           types.CategoryViewpoint,
	"summit":         types.CategoryViewpoint,
	"overlook":       types.CategoryViewpoint,
	"cliff":          types.CategoryViewpoint,
	"protected_area": types.CategoryPark,
	"nature_reserve": types.CategoryPark,
	"wood":           types.CategoryForest,
	"cathedral":      types.CategoryChurch,
	"basilica":       types.CategoryChurch,
	"monastery":      types.CategoryChurch,
	"fortress":       types.CategoryCastle,
}

// CoarseCategory maps any raw category spelling onto the closed set.
func CoarseCategory(raw types.Category) types.Category {
	if types.IsKnownCategory(raw) {
		return raw
	}
	if coarse, ok := subtypeToCoarse[string(raw)]; ok {
		return coarse
	}
	return types.CategoryOther
}

// MatchingCategories returns the coarse categories whose members are
// considered soft-equivalent to the query category.
func MatchingCategories(query types.Category) []types.Category {
	q := CoarseCategory(query)
	allowed := map[string]bool{string(q): true}
	for _, member := range categoryEquiv[q] {
		allowed[member] = true
	}
	var out []types.Category
	for _, coarse := range types.AllCategories {
		if allowed[string(coarse)] {
			out = append(out, coarse)
			continue
		}
		for _, member := range categoryEquiv[coarse] {
			if allowed[member] {
				out = append(out, coarse)
				break
			}
		}
	}
	return out
}
