// Package irradiance turns daily irradiance history into the annual and
// monthly profile used for production estimates, with caching and a static
// regional fallback.
package irradiance

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/pkg/nasapower"
)

const (
	// DaysPerYear scales the mean daily reading to an annual figure, which
	// tolerates partial years.
	DaysPerYear = 365

	// SystemEfficiency converts GHI into expected PV yield per kWp.
	SystemEfficiency = 0.80

	MinPeakSunHours = 2.5
	MaxPeakSunHours = 5.5
)

// ErrNoValidData means every reading in a series was a fill value.
var ErrNoValidData = eris.New("irradiance: no valid daily readings")

var errNoClient = eris.New("irradiance: no api client configured")

// Aggregate builds a profile from a daily series. Negative values and keys
// that are not YYYYMMDD dates are discarded. The result has no coordinate or
// data source set.
func Aggregate(series nasapower.Series) (model.IrradianceProfile, error) {
	var (
		sum        float64
		valid      int
		monthSum   [12]float64
		monthCount [12]int
	)

	// Sorted keys keep the float sum reproducible.
	for _, day := range slices.Sorted(maps.Keys(series)) {
		v := series[day]
		if v < 0 || math.IsNaN(v) {
			continue
		}
		date, err := time.Parse(nasapower.DateLayout, day)
		if err != nil {
			continue
		}
		sum += v
		valid++
		m := date.Month() - 1
		monthSum[m] += v
		monthCount[m]++
	}

	if valid == 0 {
		return model.IrradianceProfile{}, ErrNoValidData
	}

	annual := sum / float64(valid) * DaysPerYear

	var monthly [12]float64
	for i := range monthly {
		if monthCount[i] > 0 {
			monthly[i] = monthSum[i] / float64(monthCount[i])
		}
	}

	return model.IrradianceProfile{
		AnnualGHI:       annual,
		MonthlyAverages: monthly,
		PeakSunHours:    ClampPeakSunHours(annual / DaysPerYear),
		PVPotential:     annual * SystemEfficiency,
		ValidDays:       valid,
	}, nil
}

// ClampPeakSunHours bounds psh to the plausible range for the region.
func ClampPeakSunHours(psh float64) float64 {
	return math.Max(MinPeakSunHours, math.Min(MaxPeakSunHours, psh))
}
