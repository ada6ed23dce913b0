package model

import (
	"strings"
	"time"
)

// PropertyType is the class of property an installation is for.
type PropertyType string

const (
	PropertyResidential PropertyType = "residential"
	PropertyFarm        PropertyType = "farm"
	PropertyBusiness    PropertyType = "business"
)

// ParsePropertyType normalises a property type, defaulting empty input to
// residential.
func ParsePropertyType(s string) (PropertyType, bool) {
	switch PropertyType(strings.ToLower(strings.TrimSpace(s))) {
	case "", PropertyResidential:
		return PropertyResidential, true
	case PropertyFarm:
		return PropertyFarm, true
	case PropertyBusiness, "commercial":
		return PropertyBusiness, true
	}
	return "", false
}

// IncentiveCategory is the kind of funding a program provides.
type IncentiveCategory string

const (
	CategoryGrant            IncentiveCategory = "grant"
	CategoryLoan             IncentiveCategory = "loan"
	CategoryInterestFreeLoan IncentiveCategory = "interest-free-loan"
)

// IncentiveInfo describes a funding program.
type IncentiveInfo struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Administrator       string            `json:"administrator,omitempty"`
	Category            IncentiveCategory `json:"category"`
	Description         string            `json:"description,omitempty"`
	Criteria            []string          `json:"criteria"`
	MaxAmount           float64           `json:"maxAmount"`
	PropertyTypes       []PropertyType    `json:"propertyTypes"`
	Deadline            *time.Time        `json:"deadline,omitempty"`
	RequiresPreApproval bool              `json:"requiresPreApproval"`
	URL                 string            `json:"url,omitempty"`
}

// IncentiveMatch is the evaluation of one program against a system.
type IncentiveMatch struct {
	Program        IncentiveInfo `json:"program"`
	Eligible       bool          `json:"eligible"`
	Unmet          []string      `json:"unmet,omitempty"`
	EstimatedValue float64       `json:"estimatedValue"`
}

// IncentiveSummary aggregates all program evaluations for a system.
type IncentiveSummary struct {
	PropertyType    PropertyType     `json:"propertyType"`
	SystemSizeKW    float64          `json:"systemSizeKw"`
	EstimatedCost   float64          `json:"estimatedCost"`
	Matches         []IncentiveMatch `json:"matches"`
	EligibleCount   int              `json:"eligibleCount"`
	UncappedTotal   float64          `json:"uncappedTotal"`
	TotalFunding    float64          `json:"totalFunding"`
	StackingCap     float64          `json:"stackingCap"`
	Capped          bool             `json:"capped"`
	CoveragePercent float64          `json:"coveragePercent"`
}
