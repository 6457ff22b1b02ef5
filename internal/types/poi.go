package types

// Category is the coarse classification assigned to every resolved place.
// The set is closed: anything the classifier cannot place ends up as
// CategoryOther, never empty.
type Category string

const (
	CategoryLake      Category = "lake"
	CategoryWaterfall Category = "waterfall"
	CategoryBeach     Category = "beach"
	CategoryViewpoint Category = "viewpoint"
	CategoryPark      Category = "park"
	CategoryForest    Category = "forest"
	CategoryCastle    Category = "castle"
	CategoryChurch    Category = "church"
	CategoryMuseum    Category = "museum"
	CategoryOther     Category = "other"
)

// AllCategories lists the closed category set in a stable order.
var AllCategories = []Category{
	CategoryLake,
	CategoryWaterfall,
	CategoryBeach,
	CategoryViewpoint,
	CategoryPark,
	CategoryForest,
	CategoryCastle,
	CategoryChurch,
	CategoryMuseum,
	CategoryOther,
}

// IsKnownCategory reports whether c belongs to the closed set.
func IsKnownCategory(c Category) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// POIRecord is the canonical resolved place record. Name is display-only and
// must never leak into Desc or any embedding text.
type POIRecord struct {
	Name     string            `json:"name"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Category Category          `json:"category"`
	Tags     map[string]string `json:"tags"`
	Desc     string            `json:"desc"`
	Source   string            `json:"source"`
}

// FeatureVector holds normalized environmental scalars in [0,1]. The zero
// value is the neutral default used when a source is unavailable.
type FeatureVector struct {
	ReliefNorm   float64 `json:"relief_norm"`
	WaterClarity float64 `json:"water_clarity"`
	Greenness    float64 `json:"greenness"`
	Naturalness  float64 `json:"naturalness"`
}

// IsNeutral reports whether every scalar is at its neutral default.
func (f FeatureVector) IsNeutral() bool {
	return f.ReliefNorm == 0 && f.WaterClarity == 0 && f.Greenness == 0 && f.Naturalness == 0
}

// ResolveRequest is one name to resolve, with an optional category hint.
type ResolveRequest struct {
	Name string `json:"name"`
	Hint string `json:"hint,omitempty"`
}

// ScoredPOI is a resolved record paired with a similarity score, as exposed
// to downstream consumers.
type ScoredPOI struct {
	Name     string            `json:"name"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Category Category          `json:"category"`
	Source   string            `json:"source"`
	Score    float64           `json:"score"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// AlternativeRoute wraps one suggested destination. ScenicWaypoints and
// RoutePath stay empty unless a routing collaborator filled them in; callers
// fall back to straight-line stitching when RoutePath is empty.
type AlternativeRoute struct {
	Destination     ScoredPOI      `json:"destination"`
	ScenicWaypoints []ScoredPOI    `json:"scenic_waypoints"`
	Score           float64        `json:"score"`
	RoutePath       [][2]float64   `json:"route_path"`
}

// AlternativesResponse is the stable wire contract handed to the consumer:
// one target name and its ranked alternatives. An empty Alternatives slice is
// a valid "nothing found" outcome, not an error.
type AlternativesResponse struct {
	TargetName   string             `json:"target_name"`
	Alternatives []AlternativeRoute `json:"alternatives"`
}

// AlternativesRequest is the request body for the alternatives endpoint.
type AlternativesRequest struct {
	UserLat    float64          `json:"user_lat"`
	UserLon    float64          `json:"user_lon"`
	RadiusKm   float64          `json:"radius_km,omitempty"`
	Alpha      *float64         `json:"alpha,omitempty"`
	TopK       int              `json:"topk,omitempty"`
	Targets    []ResolveRequest `json:"targets"`
	Candidates []ResolveRequest `json:"candidates"`
}
