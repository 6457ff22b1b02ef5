package resolver

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

const (
	descMinWords = 25
	descMaxWords = 45
)

// TerrainContext carries the boolean facts the composer may weave into the
// description. All fields default to "unknown" (false).
type TerrainContext struct {
	Mountainous bool
	Protected   bool
	Glacial     bool
	CraterLake  bool
}

var typeWords = map[types.Category]string{
	types.CategoryLake:      "lake",
	types.CategoryWaterfall: "waterfall",
	types.CategoryBeach:     "beach",
	types.CategoryViewpoint: "viewpoint",
	types.CategoryPark:      "park",
	types.CategoryForest:    "forest",
	types.CategoryCastle:    "castle",
	types.CategoryChurch:    "church",
	types.CategoryMuseum:    "museum",
	types.CategoryOther:     "site",
}

var defaultSentences = map[types.Category]string{
	types.CategoryLake:      "A lake with clear waters and forested slopes, creating a calm alpine setting.",
	types.CategoryWaterfall: "A waterfall dropping into a narrow gorge, backed by steep, rugged terrain.",
	types.CategoryBeach:     "A natural beach with clean shoreline and an unspoiled feel.",
	types.CategoryViewpoint: "An elevated viewpoint with broad panoramas across surrounding peaks and valleys.",
	types.CategoryPark:      "A protected natural area with trails, woodland, and a quiet atmosphere.",
	types.CategoryForest:    "A quiet woodland with shaded paths and dense, mixed tree cover.",
	types.CategoryCastle:    "A historic castle set amid scenic landscapes and traditional architecture.",
	types.CategoryChurch:    "A landmark church noted for its setting and striking silhouette.",
	types.CategoryMuseum:    "A museum focused on regional heritage in a pleasant setting.",
	types.CategoryOther:     "A scenic natural site in a tranquil setting.",
}

// paddingSentences are neutral closers appended until the word budget's lower
// bound is met. None of them name places.
var paddingSentences = []string{
	"The surroundings stay quiet outside peak season, with room to wander undisturbed.",
	"Paths around the area suit an unhurried visit at most times of year.",
	"The setting rewards visitors who linger rather than pass through quickly.",
}

// boilerplate markers for terse administrative snippets that make poor
// scenic descriptions.
var adminStoplist = []string{
	"administrative", "municipality", "census", "postal", "district of", "statistical",
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)
var danglingPunct = regexp.MustCompile(`\s+([,.;:])`)

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// isNarrative filters out snippets that read as data rather than prose:
// very short ones and ones dense with technical punctuation.
func isNarrative(text string) bool {
	if wordCount(text) < 10 {
		return false
	}
	punct := 0
	for _, ch := range text {
		switch ch {
		case ':', ';', '(', ')', '/', '[', ']':
			punct++
		}
	}
	if punct >= 3 {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range adminStoplist {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// stripName removes every case-insensitive occurrence of name and tidies the
// leftover whitespace and punctuation.
func stripName(text, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return text
	}
	// Match against the original text: a lowercased view can differ in byte
	// length, so its offsets do not transfer.
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
	text = re.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = danglingPunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

func containsName(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(name))
}

// synthesize builds the clause-based scenic sentences from tags and terrain
// facts. Deterministic: clause order is fixed and duplicates are removed.
func synthesize(category types.Category, tags map[string]string, terrain TerrainContext) string {
	protected := terrain.Protected ||
		tags["boundary"] == "protected_area" || tags["protect_class"] != "" ||
		strings.Contains(tags["leisure"], "national_park")
	glacial := terrain.Glacial || tags["glacier"] == "yes" || tags["glacial"] == "yes"
	caldera := terrain.CraterLake ||
		strings.Contains(tags["natural"], "caldera") || strings.Contains(tags["natural"], "crater") ||
		tags["volcanic"] == "yes"
	fjordLike := tags["water"] == "fjord"
	hasForest := tags["wood"] != "" || tags["landuse"] == "forest"
	waterCategory := category == types.CategoryLake || category == types.CategoryBeach || category == types.CategoryWaterfall
	clearWater := waterCategory &&
		(tags["natural"] == "water" || tags["natural"] == "beach" || tags["natural"] == "waterfall")

	var clauses []string
	if protected {
		clauses = append(clauses, "within a protected national park")
	}
	if terrain.Mountainous {
		clauses = append(clauses, "surrounded by towering mountains")
	} else if category == types.CategoryViewpoint || category == types.CategoryWaterfall || category == types.CategoryLake {
		clauses = append(clauses, "framed by high slopes")
	}
	if clearWater {
		clauses = append(clauses, "renowned for its clear, emerald-toned waters")
	}
	if glacial && category == types.CategoryLake {
		clauses = append(clauses, "shaped by glacier activity")
	}
	if caldera && category == types.CategoryLake {
		clauses = append(clauses, "set within a volcanic crater")
	}
	if fjordLike && category == types.CategoryLake {
		clauses = append(clauses, "with a long, fjord-like basin")
	}
	if hasForest || protected {
		clauses = append(clauses, "forest-lined surroundings")
	}
	if len(clauses) > 3 {
		clauses = clauses[:3]
	}

	if len(clauses) == 0 {
		return defaultSentences[category]
	}

	first := "A " + typeWords[category] + ", " + strings.Join(clauses, ", ") + "."
	var secondBits []string
	if category == types.CategoryLake || category == types.CategoryBeach {
		secondBits = append(secondBits, "Its waters appear distinctly clear")
	}
	secondBits = append(secondBits, "creating a serene atmosphere")
	second := strings.Join(secondBits, ", ") + "."
	second = strings.ToUpper(second[:1]) + second[1:]
	return first + " " + second
}

// splitSentences breaks text at sentence boundaries, keeping terminators.
func splitSentences(text string) []string {
	var out []string
	var current strings.Builder
	for _, ch := range text {
		current.WriteRune(ch)
		if ch == '.' || ch == '!' || ch == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		out = append(out, tail+".")
	}
	return out
}

// enforceBudget trims text to at most descMaxWords, cutting at sentence
// boundaries where possible and never mid-word.
func enforceBudget(text string) string {
	if wordCount(text) <= descMaxWords {
		return text
	}
	sentences := splitSentences(text)
	var kept []string
	total := 0
	for _, s := range sentences {
		n := wordCount(s)
		if total+n > descMaxWords {
			break
		}
		kept = append(kept, s)
		total += n
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}
	// Single over-long sentence: cut on a word boundary.
	words := strings.Fields(text)
	return strings.TrimRight(strings.Join(words[:descMaxWords], " "), ",;:") + "."
}

// ComposeDescription builds the short, name-free scenic description for a
// resolved place. Deterministic for identical inputs; the output never
// contains name (case-insensitive) and lands in the 25-45 word budget.
func ComposeDescription(name string, category types.Category, tags map[string]string, evidence []string, terrain TerrainContext) string {
	var narrative []string
	for _, snippet := range evidence {
		snippet = strings.TrimSpace(snippet)
		if snippet == "" {
			continue
		}
		snippet = stripName(snippet, name)
		if isNarrative(snippet) {
			narrative = append(narrative, ensureTerminated(snippet))
		}
	}

	text := strings.Join(narrative, " ")
	text = stripName(text, name)

	// Too little usable evidence: fall back to the category-templated
	// synthesis from tags and terrain alone.
	if wordCount(text) < 10 {
		text = synthesize(category, tags, terrain)
		text = stripName(text, name)
	}

	if terrain.Mountainous && !strings.Contains(strings.ToLower(text), "mountain") {
		text += " High relief surrounds the area, with steep slopes rising close by."
	}

	for _, pad := range paddingSentences {
		if wordCount(text) >= descMinWords {
			break
		}
		if containsName(pad, name) {
			continue
		}
		text = strings.TrimSpace(text + " " + pad)
	}

	text = enforceBudget(text)

	// Sentence-boundary trimming can land under the lower bound; top up with
	// whichever pads still fit the cap.
	for _, pad := range paddingSentences {
		if wordCount(text) >= descMinWords {
			break
		}
		if containsName(pad, name) || wordCount(text)+wordCount(pad) > descMaxWords {
			continue
		}
		text = strings.TrimSpace(text + " " + pad)
	}

	// The name-free invariant holds unconditionally, even for degenerate
	// names that overlap ordinary words.
	if containsName(text, name) {
		text = stripName(text, name)
	}
	return strings.TrimSpace(text)
}

func ensureTerminated(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}
