// Package presenter turns a settled analysis result into a severity-tiered view model.
// Everything here is pure: no I/O, no shared state.
package presenter

import (
	"fmt"

	"github.com/bryanwahyu/aishield/internal/domain/analysis"
)

// Icon is the semantic icon category of a tier.
type Icon string

const (
	IconAffirmative Icon = "affirmative"
	IconCaution     Icon = "caution"
	IconDanger      Icon = "danger"
)

// Severity is the color tier.
type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Tier is the fixed descriptor for one classification.
type Tier struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        Icon     `json:"icon"`
	Severity    Severity `json:"severity"`
}

var tiers = map[analysis.Classification]Tier{
	analysis.ClassificationSafe: {
		Title:       "Looks Safe",
		Description: "No major concerns detected",
		Icon:        IconAffirmative,
		Severity:    SeveritySafe,
	},
	analysis.ClassificationWarning: {
		Title:       "Proceed with Caution",
		Description: "Some suspicious elements detected",
		Icon:        IconCaution,
		Severity:    SeverityWarning,
	},
	analysis.ClassificationDanger: {
		Title:       "High Risk Detected",
		Description: "This appears to be a scam or phishing attempt",
		Icon:        IconDanger,
		Severity:    SeverityDanger,
	},
}

// Section headings.
const (
	TitleSummary     = "Summary"
	TitleExplanation = "What This Means"
	TitleRedFlags    = "Red Flags Detected"
	TitleTips        = "Safety Tips"

	Disclaimer = "This is a student prototype. Always verify suspicious content with a trusted adult."
)

// Lookup returns the tier for c.
func Lookup(c analysis.Classification) (Tier, bool) {
	t, ok := tiers[c]
	return t, ok
}

// Confidence holds the raw value and the clamped bar fill.
type Confidence struct {
	Value int `json:"value"`
	Fill  int `json:"fill"`
}

// Width is the bar width as a CSS-style percentage.
func (c Confidence) Width() string {
	return fmt.Sprintf("%d%%", c.Fill)
}

// Section is a titled list. A nil *Section means "do not render".
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Descriptor is everything a view needs to render a result.
type Descriptor struct {
	Classification analysis.Classification `json:"classification"`
	Tier           Tier                    `json:"tier"`
	Confidence     Confidence              `json:"confidence"`
	Summary        string                  `json:"summary"`
	Explanation    string                  `json:"explanation"`
	RedFlags       *Section                `json:"red_flags,omitempty"`
	Tips           *Section                `json:"tips,omitempty"`
	Disclaimer     string                  `json:"disclaimer"`
}

// Present maps r to its descriptor. r.Classification must already be valid;
// an unknown classification panics.
func Present(r analysis.Result) Descriptor {
	tier, ok := tiers[r.Classification]
	if !ok {
		panic(fmt.Sprintf("presenter: unknown classification %q", r.Classification))
	}
	return Descriptor{
		Classification: r.Classification,
		Tier:           tier,
		Confidence:     Confidence{Value: r.Confidence, Fill: ClampConfidence(r.Confidence)},
		Summary:        r.Summary,
		Explanation:    r.Explanation,
		RedFlags:       section(TitleRedFlags, r.RedFlags),
		Tips:           section(TitleTips, r.Tips),
		Disclaimer:     Disclaimer,
	}
}

// ClampConfidence bounds v to [0, 100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func section(title string, items []string) *Section {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	copy(out, items)
	return &Section{Title: title, Items: out}
}
