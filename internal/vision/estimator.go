package vision

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/sells-group/solar-engine/internal/model"
)

var (
	shadingLevels = []model.ShadingLevel{model.ShadingLow, model.ShadingMedium, model.ShadingHigh}
	complexities  = []model.Complexity{model.ComplexitySimple, model.ComplexityModerate, model.ComplexityComplex}
	orientations  = []string{"south", "south-east", "south-west", "east", "west"}
	conditions    = []string{"excellent", "good", "fair", "worn"}
)

// Estimator synthesizes plausible roof attributes without looking at the
// image content. Output is tagged UsedAI=false. The same seed and image
// bytes always produce the same estimate.
type Estimator struct {
	seed uint64
}

// NewEstimator creates an Estimator.
func NewEstimator(seed uint64) *Estimator {
	return &Estimator{seed: seed}
}

// Estimate returns a synthetic analysis for img.
func (e *Estimator) Estimate(img Image) model.RoofAnalysis {
	h := fnv.New64a()
	_, _ = h.Write(img.Data)
	rng := rand.New(rand.NewPCG(e.seed, h.Sum64()))

	between := func(lo, hi float64) float64 {
		return math.Round((lo+rng.Float64()*(hi-lo))*10) / 10
	}

	panels := 12 + rng.IntN(13) // 12-24
	roof := model.RoofAnalysis{
		AreaM2:            between(80, 200),
		Shading:           shadingLevels[rng.IntN(len(shadingLevels))],
		PitchDegrees:      between(15, 45),
		Complexity:        complexities[rng.IntN(len(complexities))],
		UsablePercent:     between(60, 85),
		ExistingPanels:    model.NewPanelRange(panels),
		Orientation:       orientations[rng.IntN(len(orientations))],
		Condition:         conditions[rng.IntN(len(conditions))],
		UsedAI:            false,
		Provider:          "estimator",
		PanelCount:        panels,
		CurrentEfficiency: between(65, 85),
	}
	return withSuggestions(roof)
}
