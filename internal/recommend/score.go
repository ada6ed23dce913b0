// Package recommend composes the roof, irradiance, financial and incentive
// assessments into a single scored recommendation.
package recommend

import (
	"math"

	"github.com/sells-group/solar-engine/internal/model"
)

// Score weights. They sum to 100.
const (
	AreaWeight       = 40.0
	ShadeWeight      = 30.0
	ProductionWeight = 30.0
)

// FullAreaM2 is the usable area that earns the whole area weight.
const FullAreaM2 = 60.0

// ShadeFactor maps shading to a 0-1 factor, decreasing with severity.
func ShadeFactor(s model.ShadingLevel) float64 {
	switch s {
	case model.ShadingLow:
		return 1.0
	case model.ShadingMedium:
		return 0.6
	case model.ShadingHigh:
		return 0.2
	}
	return 0.6
}

// Score returns the 0-100 suitability score. It rises with usable area and
// production and falls with shading. A non-positive consumption counts any
// production as fully offsetting.
func Score(usableAreaM2 float64, shading model.ShadingLevel, productionKWh, consumptionKWh float64) int {
	area := clamp01(usableAreaM2 / FullAreaM2)

	var production float64
	switch {
	case productionKWh <= 0:
		production = 0
	case consumptionKWh <= 0:
		production = 1
	default:
		production = clamp01(productionKWh / consumptionKWh)
	}

	s := AreaWeight*area + ShadeWeight*ShadeFactor(shading) + ProductionWeight*production
	return int(math.Max(0, math.Min(100, math.Round(s))))
}

// Grade buckets a score.
func Grade(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
