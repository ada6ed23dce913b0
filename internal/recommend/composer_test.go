package recommend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/sells-group/solar-engine/internal/finance"
	"github.com/sells-group/solar-engine/internal/model"
)

func testInput() Input {
	return Input{
		Roof: model.RoofAnalysis{
			AreaM2:        120,
			UsablePercent: 75,
			Shading:       model.ShadingLow,
			Suggestions: []model.Suggestion{
				{Kind: "maintenance", Priority: model.PriorityLow},
				{Kind: "tilt", Priority: model.PriorityMedium},
			},
		},
		Irradiance: model.IrradianceProfile{DataSource: model.DataSourceLive},
		Design: finance.Design{
			PanelCount:          18,
			SystemSizeKW:        7.2,
			AnnualProductionKWh: 7345.4,
			Layout:              "18 panels on the south-facing roof plane",
		},
		Financial: model.FinancialAnalysis{
			InstallationCost:     21600,
			AnnualSavings:        1322.17,
			PaybackYears:         16.34,
			AdjustedPaybackYears: 11.8,
		},
		Incentives: model.IncentiveSummary{
			TotalFunding: 6000,
			Capped:       true,
			Matches: []model.IncentiveMatch{
				{Eligible: true, Program: model.IncentiveInfo{RequiresPreApproval: true}},
			},
		},
		ConsumptionKWh: 7500,
	}
}

func TestCompose(t *testing.T) {
	rec := NewComposer(language.English).Compose(testInput())

	assert.Equal(t, 99, rec.SuitabilityScore)
	assert.Equal(t, "A", rec.Grade)
	assert.Equal(t, 18, rec.PanelCount)
	assert.InDelta(t, 7345.0, rec.AnnualProductionKWh, 1e-9)
	assert.Equal(t, "18 panels on the south-facing roof plane", rec.LayoutDescription)

	assert.Contains(t, rec.Explanation, "Grade A (99/100)")
	assert.Contains(t, rec.Explanation, "7,345 kWh")
	assert.Contains(t, rec.Explanation, "$1,322")
	assert.Contains(t, rec.Explanation, "$6,000 of the $21,600")
	assert.Contains(t, rec.Explanation, "11.8 years")

	kinds := make([]string, len(rec.Suggestions))
	for i, s := range rec.Suggestions {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []string{KindIncentive, "tilt", KindFinancial, "maintenance", KindIncentive}, kinds)
	for i := 1; i < len(rec.Suggestions); i++ {
		assert.LessOrEqual(t, rec.Suggestions[i-1].Priority.Rank(), rec.Suggestions[i].Priority.Rank())
	}
}

func TestCompose_UndefinedPayback(t *testing.T) {
	in := testInput()
	in.Financial.PaybackYears = model.Years(math.Inf(1))
	in.Financial.AdjustedPaybackYears = model.Years(math.Inf(1))
	in.Incentives = model.IncentiveSummary{}
	in.Irradiance.DataSource = model.DataSourceDefault

	rec := NewComposer(language.English).Compose(in)
	require.NotEmpty(t, rec.Suggestions)
	assert.Equal(t, KindFinancial, rec.Suggestions[0].Kind)
	assert.Equal(t, model.PriorityHigh, rec.Suggestions[0].Priority)
	assert.NotContains(t, rec.Explanation, "payback")

	var dataQuality bool
	for _, s := range rec.Suggestions {
		dataQuality = dataQuality || s.Kind == KindDataSource
	}
	assert.True(t, dataQuality)
}

func TestCompose_NoPanels(t *testing.T) {
	in := testInput()
	in.Design = finance.Design{}

	rec := NewComposer(language.English).Compose(in)
	assert.Contains(t, rec.Explanation, "too small")
	assert.Zero(t, rec.PanelCount)
}

func TestCompose_LocalizedNumbers(t *testing.T) {
	rec := NewComposer(language.French).Compose(testInput())
	assert.NotContains(t, rec.Explanation, "7,345")
}
