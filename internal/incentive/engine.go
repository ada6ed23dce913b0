package incentive

import (
	"fmt"
	"math"
	"time"

	"github.com/sells-group/solar-engine/internal/model"
)

// Request is the system evaluated against the catalog.
type Request struct {
	PropertyType  model.PropertyType
	SystemSizeKW  float64
	EstimatedCost float64
}

// Engine evaluates requests against a catalog.
type Engine struct {
	catalog *Catalog
	now     func() time.Time
}

// NewEngine creates an Engine over c.
func NewEngine(c *Catalog) *Engine {
	if c == nil {
		c = &Catalog{}
	}
	return &Engine{catalog: c, now: time.Now}
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Evaluate matches every program open to the request's property type and
// totals the eligible values, clamped to the property type's stacking cap.
func (e *Engine) Evaluate(req Request) model.IncentiveSummary {
	now := e.now()
	sum := model.IncentiveSummary{
		PropertyType:  req.PropertyType,
		SystemSizeKW:  req.SystemSizeKW,
		EstimatedCost: req.EstimatedCost,
		Matches:       []model.IncentiveMatch{},
		StackingCap:   e.catalog.StackingCaps[req.PropertyType],
	}

	for _, p := range e.catalog.ProgramsFor(req.PropertyType) {
		m := model.IncentiveMatch{Program: p.Info(), Unmet: p.unmet(req, now)}
		m.Eligible = len(m.Unmet) == 0
		if m.Eligible {
			m.EstimatedValue = p.Value.estimate(req, p.MaxAmount)
			sum.EligibleCount++
			sum.UncappedTotal += m.EstimatedValue
		}
		sum.Matches = append(sum.Matches, m)
	}

	sum.TotalFunding = sum.UncappedTotal
	if sum.StackingCap > 0 && sum.TotalFunding > sum.StackingCap {
		sum.TotalFunding = sum.StackingCap
		sum.Capped = true
	}
	if req.EstimatedCost > 0 {
		sum.CoveragePercent = math.Round(sum.TotalFunding/req.EstimatedCost*1000) / 10
	}
	return sum
}

// unmet lists the criteria the request fails.
func (p Program) unmet(req Request, now time.Time) []string {
	var out []string
	r := p.Rules
	if r.MinSizeKW > 0 && req.SystemSizeKW < r.MinSizeKW {
		out = append(out, fmt.Sprintf("system size %.1f kW is below the %.1f kW minimum", req.SystemSizeKW, r.MinSizeKW))
	}
	if r.MaxSizeKW > 0 && req.SystemSizeKW > r.MaxSizeKW {
		out = append(out, fmt.Sprintf("system size %.1f kW exceeds the %.1f kW maximum", req.SystemSizeKW, r.MaxSizeKW))
	}
	if r.MinCost > 0 && req.EstimatedCost < r.MinCost {
		out = append(out, fmt.Sprintf("project cost $%.0f is below the $%.0f minimum", req.EstimatedCost, r.MinCost))
	}
	if r.MaxCost > 0 && req.EstimatedCost > r.MaxCost {
		out = append(out, fmt.Sprintf("project cost $%.0f exceeds the $%.0f maximum", req.EstimatedCost, r.MaxCost))
	}
	// Deadlines are inclusive through the end of the day.
	if p.deadline != nil && !now.Before(p.deadline.AddDate(0, 0, 1)) {
		out = append(out, "application deadline "+p.deadline.Format(DeadlineLayout)+" has passed")
	}
	return out
}

// estimate applies the formula, capped at limit when limit is positive.
func (f Formula) estimate(req Request, limit float64) float64 {
	var v float64
	switch f.Kind {
	case FormulaFlat:
		v = f.Amount
		if v == 0 {
			v = limit
		}
	case FormulaPerWatt:
		v = f.Rate * req.SystemSizeKW * 1000
	case FormulaPercentOfCost:
		v = f.Percent / 100 * req.EstimatedCost
	}
	if limit > 0 {
		v = math.Min(v, limit)
	}
	return math.Max(0, math.Round(v*100)/100)
}
