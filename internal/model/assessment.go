package model

import "time"

// SolarRecommendation is the composed verdict for a property.
type SolarRecommendation struct {
	SuitabilityScore     int               `json:"suitabilityScore"`
	Grade                string            `json:"grade"`
	SystemSizeKW         float64           `json:"systemSizeKw"`
	PanelCount           int               `json:"panelCount"`
	AnnualProductionKWh  float64           `json:"annualProductionKwh"`
	MonthlyProductionKWh [12]float64       `json:"monthlyProductionKwh"`
	LayoutDescription    string            `json:"layoutDescription"`
	Explanation          string            `json:"explanation"`
	Suggestions          []Suggestion      `json:"suggestions"`
	Financial            FinancialAnalysis `json:"financial"`
}

// Assessment is the full output of one engine run.
type Assessment struct {
	ID             string              `json:"id"`
	Address        Address             `json:"address"`
	PropertyType   PropertyType        `json:"propertyType"`
	Location       GeocodedLocation    `json:"location"`
	Irradiance     IrradianceProfile   `json:"irradiance"`
	Roof           RoofAnalysis        `json:"roof"`
	Incentives     IncentiveSummary    `json:"incentives"`
	Recommendation SolarRecommendation `json:"recommendation"`
	CreatedAt      time.Time           `json:"createdAt"`
	DurationMS     int64               `json:"durationMs"`
}
