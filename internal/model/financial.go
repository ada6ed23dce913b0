package model

import (
	"encoding/json"
	"math"
)

// Years is a duration in years. A non-finite value means the period is
// undefined and is encoded as JSON null.
type Years float64

// Defined reports whether y is a finite number of years.
func (y Years) Defined() bool {
	f := float64(y)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// MarshalJSON implements json.Marshaler.
func (y Years) MarshalJSON() ([]byte, error) {
	if !y.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(math.Round(float64(y)*100) / 100)
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to +Inf.
func (y *Years) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*y = Years(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*y = Years(f)
	return nil
}

// YearProjection is one year of the long-term savings projection.
type YearProjection struct {
	Year          int     `json:"year"`
	ProductionKWh float64 `json:"productionKwh"`
	RatePerKWh    float64 `json:"ratePerKwh"`
	Savings       float64 `json:"savings"`
	Cumulative    float64 `json:"cumulative"`
}

// FinancialAnalysis is the cost and return projection for a system.
type FinancialAnalysis struct {
	SystemSizeKW        float64 `json:"systemSizeKw"`
	AnnualProductionKWh float64 `json:"annualProductionKwh"`
	InstallationCost    float64 `json:"installationCost"`
	RatePerKWh          float64 `json:"ratePerKwh"`
	BasicMonthlyCharge  float64 `json:"basicMonthlyCharge"`

	AnnualSavings     float64 `json:"annualSavings"`
	MonthlySavings    float64 `json:"monthlySavings"`
	PaybackYears      Years   `json:"paybackYears"`
	CumulativeSavings float64 `json:"cumulativeSavings25Years"`
	NetProfit         float64 `json:"netProfit"`

	MonthlyBillBefore float64 `json:"monthlyBillBefore,omitempty"`
	MonthlyBillAfter  float64 `json:"monthlyBillAfter,omitempty"`

	IncentiveFunding     float64 `json:"incentiveFunding"`
	NetCost              float64 `json:"netCost"`
	AdjustedPaybackYears Years   `json:"adjustedPaybackYears"`

	Projection []YearProjection `json:"projection"`
}
