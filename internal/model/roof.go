package model

import (
	"slices"
	"strings"
)

// ShadingLevel is the ordinal amount of shade falling on the roof.
type ShadingLevel string

const (
	ShadingLow    ShadingLevel = "low"
	ShadingMedium ShadingLevel = "medium"
	ShadingHigh   ShadingLevel = "high"
)

// ParseShadingLevel normalises free text from a model response.
func ParseShadingLevel(s string) (ShadingLevel, bool) {
	switch ShadingLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ShadingLow, "none", "minimal":
		return ShadingLow, true
	case ShadingMedium, "moderate", "partial":
		return ShadingMedium, true
	case ShadingHigh, "heavy", "significant":
		return ShadingHigh, true
	}
	return "", false
}

// Complexity is the ordinal structural complexity of the roof.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ParseComplexity normalises free text from a model response.
func ParseComplexity(s string) (Complexity, bool) {
	switch Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case ComplexitySimple:
		return ComplexitySimple, true
	case ComplexityModerate, "medium":
		return ComplexityModerate, true
	case ComplexityComplex, "high":
		return ComplexityComplex, true
	}
	return "", false
}

// Priority ranks a suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high (0) to low (2). Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Suggestion is a single improvement recommendation.
type Suggestion struct {
	Kind           string   `json:"kind"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EfficiencyGain float64  `json:"efficiencyGain"`
	Priority       Priority `json:"priority"`
}

// SortSuggestions orders suggestions high to low priority in place. Ties keep
// their original order.
func SortSuggestions(s []Suggestion) {
	slices.SortStableFunc(s, func(a, b Suggestion) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
}

// PanelRange is the estimated count of panels already on the roof.
type PanelRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ExistingPanelSpread is how far above the detected count the upper bound of
// a PanelRange sits.
const ExistingPanelSpread = 7

// NewPanelRange builds a range from a detected panel count.
func NewPanelRange(detected int) *PanelRange {
	if detected < 0 {
		detected = 0
	}
	return &PanelRange{Min: detected, Max: detected + ExistingPanelSpread}
}

// RoofAnalysis describes a roof's suitability attributes.
type RoofAnalysis struct {
	AreaM2         float64      `json:"area"`
	Shading        ShadingLevel `json:"shading"`
	PitchDegrees   float64      `json:"pitch"`
	Complexity     Complexity   `json:"complexity"`
	UsablePercent  float64      `json:"usablePercent"`
	ExistingPanels *PanelRange  `json:"existingPanels,omitempty"`
	Orientation    string       `json:"orientation"`
	Condition      string       `json:"condition"`

	// AIConfidence is 0-100 and only set when UsedAI is true.
	AIConfidence *float64 `json:"aiConfidence,omitempty"`
	UsedAI       bool     `json:"usedAI"`
	Provider     string   `json:"provider,omitempty"`

	PanelCount          int          `json:"panelCount,omitempty"`
	CurrentEfficiency   float64      `json:"currentEfficiency,omitempty"`
	PotentialEfficiency float64      `json:"potentialEfficiency,omitempty"`
	Suggestions         []Suggestion `json:"suggestions"`
}

// UsableAreaM2 returns the roof area available for panels.
func (r RoofAnalysis) UsableAreaM2() float64 {
	return r.AreaM2 * r.UsablePercent / 100
}
