package finance

import (
	"fmt"
	"math"

	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/model"
)

// Sizing holds the panel and installation assumptions.
type Sizing struct {
	PanelWatts  float64
	PanelAreaM2 float64
	CostPerWatt float64
}

// DefaultSizing is 400 W panels on 2 m² at $3.00/W installed.
func DefaultSizing() Sizing {
	return Sizing{PanelWatts: 400, PanelAreaM2: 2.0, CostPerWatt: 3.00}
}

// SizingFromConfig reads the panel assumptions, keeping defaults for unset
// values.
func SizingFromConfig(cfg config.FinanceConfig) Sizing {
	s := DefaultSizing()
	if cfg.PanelWatts > 0 {
		s.PanelWatts = cfg.PanelWatts
	}
	if cfg.PanelAreaM2 > 0 {
		s.PanelAreaM2 = cfg.PanelAreaM2
	}
	if cfg.CostPerWatt > 0 {
		s.CostPerWatt = cfg.CostPerWatt
	}
	return s
}

// Design is a proposed system for a roof.
type Design struct {
	PanelCount           int
	SystemSizeKW         float64
	AnnualProductionKWh  float64
	MonthlyProductionKWh [12]float64
	InstallationCost     float64
	// ConsumptionCapped is set when the array was shrunk to the household's
	// consumption.
	ConsumptionCapped bool
	Layout            string
}

// Size proposes a system filling the usable roof area, capped at the number
// of panels needed to cover annualConsumptionKWh. A non-positive consumption
// disables the cap.
func (s Sizing) Size(roof model.RoofAnalysis, profile model.IrradianceProfile, annualConsumptionKWh float64) Design {
	perPanelKWh := s.PanelWatts / 1000 * profile.PVPotential

	panels := 0
	if s.PanelAreaM2 > 0 {
		panels = int(math.Floor(roof.UsableAreaM2() / s.PanelAreaM2))
	}

	var capped bool
	if annualConsumptionKWh > 0 && perPanelKWh > 0 {
		needed := int(math.Ceil(annualConsumptionKWh / perPanelKWh))
		if needed < panels {
			panels = needed
			capped = true
		}
	}

	d := s.design(panels, profile)
	d.ConsumptionCapped = capped
	d.Layout = layout(panels, roof)
	return d
}

// ForSize prices a system of the given size directly.
func (s Sizing) ForSize(sizeKW float64, profile model.IrradianceProfile) Design {
	panels := 0
	if s.PanelWatts > 0 {
		panels = int(math.Ceil(sizeKW * 1000 / s.PanelWatts))
	}
	d := s.design(panels, profile)
	d.SystemSizeKW = sizeKW
	d.AnnualProductionKWh = sizeKW * profile.PVPotential
	d.MonthlyProductionKWh = MonthlyProduction(d.AnnualProductionKWh, profile.MonthlyAverages)
	d.InstallationCost = roundCents(sizeKW * 1000 * s.CostPerWatt)
	return d
}

func (s Sizing) design(panels int, profile model.IrradianceProfile) Design {
	if panels < 0 {
		panels = 0
	}
	size := float64(panels) * s.PanelWatts / 1000
	annual := size * profile.PVPotential
	return Design{
		PanelCount:           panels,
		SystemSizeKW:         math.Round(size*100) / 100,
		AnnualProductionKWh:  annual,
		MonthlyProductionKWh: MonthlyProduction(annual, profile.MonthlyAverages),
		InstallationCost:     roundCents(size * 1000 * s.CostPerWatt),
	}
}

var daysInMonth = [12]float64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// MonthlyProduction splits annual production across months in proportion to
// each month's total irradiance. Without irradiance data the split is even.
func MonthlyProduction(annual float64, monthlyAverages [12]float64) [12]float64 {
	var weights [12]float64
	var total float64
	for i, avg := range monthlyAverages {
		if avg > 0 {
			weights[i] = avg * daysInMonth[i]
			total += weights[i]
		}
	}

	var out [12]float64
	for i := range out {
		if total == 0 {
			out[i] = annual / 12
			continue
		}
		out[i] = annual * weights[i] / total
	}
	return out
}

func layout(panels int, roof model.RoofAnalysis) string {
	if panels == 0 {
		return "No panels fit the usable roof area."
	}
	face := roof.Orientation
	if face == "" {
		face = "main"
	}
	return fmt.Sprintf("%d panels on the %s-facing roof plane across %.0f m² of usable area",
		panels, face, roof.UsableAreaM2())
}
