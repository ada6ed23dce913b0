package irradiance

import "github.com/sells-group/solar-engine/internal/model"

// PEI long-term averages, used whenever live data is unavailable.
const peiAnnualGHI = 1277.0

var peiMonthly = [12]float64{1.6, 2.6, 3.6, 4.5, 5.3, 5.8, 5.8, 5.0, 3.9, 2.5, 1.5, 1.2}

// DefaultProfile returns the static regional profile for a coordinate. It has
// the same shape as a live profile.
func DefaultProfile(lat, lng float64) model.IrradianceProfile {
	return model.IrradianceProfile{
		Latitude:        lat,
		Longitude:       lng,
		AnnualGHI:       peiAnnualGHI,
		MonthlyAverages: peiMonthly,
		PeakSunHours:    ClampPeakSunHours(peiAnnualGHI / DaysPerYear),
		PVPotential:     peiAnnualGHI * SystemEfficiency,
		DataSource:      model.DataSourceDefault,
	}
}
