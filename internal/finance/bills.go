package finance

import "math"

// MonthlyBills estimates the average monthly electricity bill before and
// after solar under net metering. Surplus production is credited down to the
// basic charge, never below it.
func (p *Projector) MonthlyBills(annualConsumptionKWh, annualProductionKWh float64) (before, after float64) {
	rate := p.tariff.RatePerKWh
	basic := p.tariff.BasicMonthlyCharge

	before = basic + annualConsumptionKWh/12*rate
	net := math.Max(0, annualConsumptionKWh-annualProductionKWh)
	after = basic + net/12*rate
	return roundCents(before), roundCents(after)
}
