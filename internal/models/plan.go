package models

import "github.com/shopspring/decimal"

// Plan is a purchasable mining tier
type Plan struct {
	Level              int
	Name               string
	Cost               decimal.Decimal
	DailyReturnPercent decimal.Decimal
}

// DailyYield is the primary-currency amount credited per collection
func (p Plan) DailyYield() decimal.Decimal {
	return p.Cost.Mul(p.DailyReturnPercent).Div(decimal.NewFromInt(100))
}

// PlanTable is ordered by Level and never mutated after load
type PlanTable []Plan

// Lookup returns the plan for a level
func (t PlanTable) Lookup(level int) (Plan, bool) {
	for _, p := range t {
		if p.Level == level {
			return p, true
		}
	}
	return Plan{}, false
}
