package recommend

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/solar-engine/internal/finance"
	"github.com/sells-group/solar-engine/internal/model"
)

// LongPaybackYears is the payback beyond which the financial case is flagged.
const LongPaybackYears = 15.0

// Suggestion kinds produced here.
const (
	KindFinancial  = "financial"
	KindIncentive  = "incentive"
	KindDataSource = "data-quality"
	KindSizing     = "sizing"
)

// Input is everything the composer needs.
type Input struct {
	Location       model.GeocodedLocation
	Roof           model.RoofAnalysis
	Irradiance     model.IrradianceProfile
	Design         finance.Design
	Financial      model.FinancialAnalysis
	Incentives     model.IncentiveSummary
	ConsumptionKWh float64
}

// Composer builds recommendations with locale-aware explanations.
type Composer struct {
	printer *message.Printer
}

// NewComposer creates a Composer formatting numbers for tag.
func NewComposer(tag language.Tag) *Composer {
	return &Composer{printer: message.NewPrinter(tag)}
}

// Compose scores the property and merges roof suggestions with financial and
// incentive observations, high priority first.
func (c *Composer) Compose(in Input) model.SolarRecommendation {
	score := Score(in.Roof.UsableAreaM2(), in.Roof.Shading, in.Design.AnnualProductionKWh, in.ConsumptionKWh)
	grade := Grade(score)

	suggestions := make([]model.Suggestion, 0, len(in.Roof.Suggestions)+4)
	suggestions = append(suggestions, in.Roof.Suggestions...)
	suggestions = append(suggestions, observations(in)...)
	model.SortSuggestions(suggestions)

	return model.SolarRecommendation{
		SuitabilityScore:     score,
		Grade:                grade,
		SystemSizeKW:         in.Design.SystemSizeKW,
		PanelCount:           in.Design.PanelCount,
		AnnualProductionKWh:  math.Round(in.Design.AnnualProductionKWh),
		MonthlyProductionKWh: roundMonths(in.Design.MonthlyProductionKWh),
		LayoutDescription:    in.Design.Layout,
		Explanation:          c.explain(score, grade, in),
		Suggestions:          suggestions,
		Financial:            in.Financial,
	}
}

func (c *Composer) explain(score int, grade string, in Input) string {
	p := c.printer
	if in.Design.PanelCount == 0 {
		return p.Sprintf("Grade %s (%d/100). The usable roof area is too small for a practical array.", grade, score)
	}

	text := p.Sprintf("Grade %s (%d/100). A %.1f kW system of %d panels would produce about %.0f kWh a year",
		grade, score, in.Design.SystemSizeKW, in.Design.PanelCount, in.Design.AnnualProductionKWh)
	if in.ConsumptionKWh > 0 {
		text += p.Sprintf(", covering %.0f%% of household use", math.Min(100, in.Design.AnnualProductionKWh/in.ConsumptionKWh*100))
	}
	text += p.Sprintf(". First-year savings are $%.0f", in.Financial.AnnualSavings)
	if in.Financial.PaybackYears.Defined() {
		text += p.Sprintf(" with a simple payback of %.1f years", float64(in.Financial.PaybackYears))
	}
	text += "."
	if in.Incentives.TotalFunding > 0 {
		text += p.Sprintf(" Incentives could fund $%.0f of the $%.0f installation",
			in.Incentives.TotalFunding, in.Financial.InstallationCost)
		if in.Financial.AdjustedPaybackYears.Defined() {
			text += p.Sprintf(", shortening payback to %.1f years", float64(in.Financial.AdjustedPaybackYears))
		}
		text += "."
	}
	return text
}

// observations derives financial, incentive and data-quality suggestions.
func observations(in Input) []model.Suggestion {
	var out []model.Suggestion

	switch {
	case !in.Financial.PaybackYears.Defined():
		out = append(out, model.Suggestion{
			Kind:        KindFinancial,
			Title:       "System does not pay for itself",
			Description: "Expected production does not generate savings; review the roof or system size before investing.",
			Priority:    model.PriorityHigh,
		})
	case float64(in.Financial.PaybackYears) > LongPaybackYears:
		out = append(out, model.Suggestion{
			Kind:        KindFinancial,
			Title:       "Long payback period",
			Description: "Payback exceeds 15 years; incentives or a smaller, better-placed array would improve returns.",
			Priority:    model.PriorityMedium,
		})
	}

	var preApproval bool
	for _, m := range in.Incentives.Matches {
		if m.Eligible && m.Program.RequiresPreApproval {
			preApproval = true
			break
		}
	}
	if preApproval {
		out = append(out, model.Suggestion{
			Kind:        KindIncentive,
			Title:       "Apply for incentives before installing",
			Description: "One or more eligible programs require pre-approval; work done beforehand may not qualify.",
			Priority:    model.PriorityHigh,
		})
	}
	if in.Incentives.Capped {
		out = append(out, model.Suggestion{
			Kind:        KindIncentive,
			Title:       "Incentives exceed the combined limit",
			Description: "Eligible programs add up to more than the stacking cap; choose the programs with the best terms.",
			Priority:    model.PriorityLow,
		})
	}

	if in.Design.ConsumptionCapped {
		out = append(out, model.Suggestion{
			Kind:        KindSizing,
			Title:       "Array sized to your consumption",
			Description: "The roof fits more panels, but net metering does not pay for surplus beyond annual use.",
			Priority:    model.PriorityLow,
		})
	}

	if in.Irradiance.DataSource == model.DataSourceDefault || in.Location.IsDefault {
		out = append(out, model.Suggestion{
			Kind:        KindDataSource,
			Title:       "Figures use regional averages",
			Description: "Site-specific location or irradiance data was unavailable; an on-site assessment will refine these estimates.",
			Priority:    model.PriorityLow,
		})
	}
	return out
}

func roundMonths(m [12]float64) [12]float64 {
	for i := range m {
		m[i] = math.Round(m[i])
	}
	return m
}
