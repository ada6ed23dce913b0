// Package finance projects the cost, savings and payback of a solar
// installation.
package finance

import (
	"math"

	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/model"
)

const (
	// ProjectionYears is the length of the savings projection.
	ProjectionYears = 25
	// DegradationRate is the yearly loss of panel output.
	DegradationRate = 0.005
	// RateEscalation is the yearly increase of the electricity rate.
	RateEscalation = 0.03
)

// Tariff holds the regional electricity pricing.
type Tariff struct {
	RatePerKWh         float64
	BasicMonthlyCharge float64
}

// DefaultTariff is the Maritime Electric residential rate.
func DefaultTariff() Tariff {
	return Tariff{RatePerKWh: 0.18, BasicMonthlyCharge: 24.57}
}

// Input describes the system being priced.
type Input struct {
	SystemSizeKW        float64
	AnnualProductionKWh float64
	InstallationCost    float64
	// AnnualConsumptionKWh is optional and enables the bill comparison.
	AnnualConsumptionKWh float64
}

// Projector computes FinancialAnalysis values under one tariff.
type Projector struct {
	tariff Tariff
}

// NewProjector creates a Projector. A non-positive rate falls back to the
// default tariff rate.
func NewProjector(t Tariff) *Projector {
	if t.RatePerKWh <= 0 {
		t.RatePerKWh = DefaultTariff().RatePerKWh
	}
	return &Projector{tariff: t}
}

// TariffFromConfig reads the tariff section of the configuration.
func TariffFromConfig(cfg config.FinanceConfig) Tariff {
	return Tariff{RatePerKWh: cfg.RatePerKWh, BasicMonthlyCharge: cfg.BasicMonthlyCharge}
}

// Tariff returns the projector's tariff.
func (p *Projector) Tariff() Tariff { return p.tariff }

// Project returns the financial analysis for in. Payback is +Inf when the
// system saves nothing.
func (p *Projector) Project(in Input) model.FinancialAnalysis {
	annual := in.AnnualProductionKWh * p.tariff.RatePerKWh
	projection := Projection(in.AnnualProductionKWh, p.tariff.RatePerKWh, ProjectionYears)

	var cumulative float64
	if n := len(projection); n > 0 {
		cumulative = projection[n-1].Cumulative
	}

	fa := model.FinancialAnalysis{
		SystemSizeKW:        in.SystemSizeKW,
		AnnualProductionKWh: in.AnnualProductionKWh,
		InstallationCost:    roundCents(in.InstallationCost),
		RatePerKWh:          p.tariff.RatePerKWh,
		BasicMonthlyCharge:  p.tariff.BasicMonthlyCharge,
		AnnualSavings:       roundCents(annual),
		MonthlySavings:      roundCents(annual / 12),
		PaybackYears:        Payback(in.InstallationCost, annual),
		CumulativeSavings:   roundCents(cumulative),
		NetProfit:           roundCents(cumulative - in.InstallationCost),
		NetCost:             roundCents(in.InstallationCost),
		Projection:          projection,
	}
	fa.AdjustedPaybackYears = fa.PaybackYears

	if in.AnnualConsumptionKWh > 0 {
		before, after := p.MonthlyBills(in.AnnualConsumptionKWh, in.AnnualProductionKWh)
		fa.MonthlyBillBefore = before
		fa.MonthlyBillAfter = after
	}
	return fa
}

// Payback is cost divided by annual savings, or +Inf when savings are not
// positive.
func Payback(cost, annualSavings float64) model.Years {
	if annualSavings <= 0 {
		return model.Years(math.Inf(1))
	}
	return model.Years(cost / annualSavings)
}

// Projection folds the production and rate forward over years. Year 1 uses
// the inputs unmodified; each following year degrades production and
// escalates the rate.
func Projection(production, rate float64, years int) []model.YearProjection {
	out := make([]model.YearProjection, 0, years)
	var cumulative float64
	for y := 1; y <= years; y++ {
		savings := production * rate
		cumulative += savings
		out = append(out, model.YearProjection{
			Year:          y,
			ProductionKWh: production,
			RatePerKWh:    rate,
			Savings:       savings,
			Cumulative:    cumulative,
		})
		production *= 1 - DegradationRate
		rate *= 1 + RateEscalation
	}
	return out
}

// WithIncentives adds incentive funding to fa, reporting the net cost and the
// payback on that net cost.
func WithIncentives(fa model.FinancialAnalysis, funding float64) model.FinancialAnalysis {
	funding = math.Max(0, funding)
	fa.IncentiveFunding = roundCents(funding)
	net := math.Max(0, fa.InstallationCost-funding)
	fa.NetCost = roundCents(net)
	fa.AdjustedPaybackYears = Payback(net, fa.AnnualSavings)
	return fa
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
