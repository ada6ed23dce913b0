package model

// DataSource tags where an irradiance figure came from.
type DataSource string

const (
	DataSourceLive    DataSource = "live"
	DataSourceCached  DataSource = "cached"
	DataSourceDefault DataSource = "default"
)

// IrradianceProfile summarises a year of solar irradiance for a coordinate.
type IrradianceProfile struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// AnnualGHI is global horizontal irradiance in kWh/m²/yr.
	AnnualGHI float64 `json:"annualGhi"`

	// MonthlyAverages holds the mean daily irradiance (kWh/m²/day) for
	// January through December.
	MonthlyAverages [12]float64 `json:"monthlyAverages"`

	PeakSunHours float64 `json:"peakSunHours"`

	// PVPotential is expected yield in kWh per installed kWp per year.
	PVPotential float64 `json:"pvPotential"`

	ValidDays  int        `json:"validDays"`
	DataSource DataSource `json:"dataSource"`
}
