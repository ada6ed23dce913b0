package vision

import (
	"math"

	"github.com/sells-group/solar-engine/internal/model"
)

// MaxEfficiency caps potential efficiency after improvements.
const MaxEfficiency = 98.0

// Suggestion kinds.
const (
	KindCleaning    = "cleaning"
	KindShading     = "shading"
	KindTilt        = "tilt"
	KindAddPanels   = "panel-addition"
	KindMaintenance = "maintenance"
)

// optimalPitch is the tilt band that suits the region's latitude.
var optimalPitch = [2]float64{30, 45}

// panelFootprintM2 is the roof area one additional panel occupies.
const panelFootprintM2 = 2.0

// Suggest derives improvement suggestions from roof attributes, sorted high
// to low priority with ties in rule order.
func Suggest(r model.RoofAnalysis) []model.Suggestion {
	var out []model.Suggestion

	if r.CurrentEfficiency > 0 && r.CurrentEfficiency < 85 {
		prio := model.PriorityMedium
		if r.CurrentEfficiency < 75 {
			prio = model.PriorityHigh
		}
		out = append(out, model.Suggestion{
			Kind:           KindCleaning,
			Title:          "Clean panel surfaces",
			Description:    "Dust, pollen and salt film reduce output; a professional clean restores lost yield.",
			EfficiencyGain: 5,
			Priority:       prio,
		})
	}

	switch r.Shading {
	case model.ShadingHigh:
		out = append(out, model.Suggestion{
			Kind:           KindShading,
			Title:          "Reduce shading",
			Description:    "Heavy shade from trees or structures; trimming or micro-inverters would recover significant output.",
			EfficiencyGain: 8,
			Priority:       model.PriorityHigh,
		})
	case model.ShadingMedium:
		out = append(out, model.Suggestion{
			Kind:           KindShading,
			Title:          "Reduce shading",
			Description:    "Partial shade on parts of the roof; selective trimming or optimizers would help.",
			EfficiencyGain: 4,
			Priority:       model.PriorityMedium,
		})
	}

	if r.PitchDegrees < optimalPitch[0] || r.PitchDegrees > optimalPitch[1] {
		out = append(out, model.Suggestion{
			Kind:           KindTilt,
			Title:          "Optimize panel tilt",
			Description:    "Tilted racking closer to 30-45 degrees improves year-round capture at this latitude.",
			EfficiencyGain: 3,
			Priority:       model.PriorityMedium,
		})
	}

	if r.PanelCount > 0 && int(r.UsableAreaM2()/panelFootprintM2) > r.PanelCount {
		out = append(out, model.Suggestion{
			Kind:           KindAddPanels,
			Title:          "Add panels",
			Description:    "Usable roof area remains; expanding the array raises total production.",
			EfficiencyGain: 2,
			Priority:       model.PriorityLow,
		})
	}

	out = append(out, model.Suggestion{
		Kind:           KindMaintenance,
		Title:          "Schedule annual maintenance",
		Description:    "Yearly inspection of wiring, mounts and inverter keeps the system near rated output.",
		EfficiencyGain: 2,
		Priority:       model.PriorityLow,
	})

	model.SortSuggestions(out)
	return out
}

// PotentialEfficiency adds the suggestion gains to current, capped at
// MaxEfficiency.
func PotentialEfficiency(current float64, suggestions []model.Suggestion) float64 {
	total := current
	for _, s := range suggestions {
		total += s.EfficiencyGain
	}
	return math.Min(MaxEfficiency, total)
}

// withSuggestions fills the suggestion-derived fields of r.
func withSuggestions(r model.RoofAnalysis) model.RoofAnalysis {
	r.Suggestions = Suggest(r)
	r.PotentialEfficiency = PotentialEfficiency(r.CurrentEfficiency, r.Suggestions)
	return r
}
