// Package analytics derives dashboard statistics from a snapshot of incidents.
// All functions are pure: the same input always yields the same output and the
// input slice is never modified.
package analytics

import (
	"math"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Unknown is reported for categorical statistics of an empty register.
const Unknown = "Unknown"

// Summary holds the headline statistics of the register.
type Summary struct {
	TotalIncidents      int     `json:"total_incidents"`
	TotalCost           float64 `json:"total_cost"`
	AvgCost             float64 `json:"avg_cost"`
	MostCommonRootCause string  `json:"most_common_root_cause"`
	TeamWithHighestCost string  `json:"team_with_highest_cost"`
}

// Summarize computes summary statistics over incidents.
// Ties on the most common root cause and highest-cost team go to the value
// encountered first.
func Summarize(incidents []domain.Incident) Summary {
	if len(incidents) == 0 {
		return Summary{
			MostCommonRootCause: Unknown,
			TeamWithHighestCost: Unknown,
		}
	}

	total := decimal.Zero
	causes := newTally()
	teamCosts := newTally()

	for _, inc := range incidents {
		causes.add(inc.RootCause, decimal.NewFromInt(1))
		// Still counted as an incident; only its amount is left out.
		cost, ok := costOf(inc)
		if !ok {
			continue
		}
		total = total.Add(cost)
		teamCosts.add(string(inc.Team), cost)
	}

	avg := total.Div(decimal.NewFromInt(int64(len(incidents)))).Round(2)

	return Summary{
		TotalIncidents:      len(incidents),
		TotalCost:           total.InexactFloat64(),
		AvgCost:             avg.InexactFloat64(),
		MostCommonRootCause: causes.top(),
		TeamWithHighestCost: teamCosts.top(),
	}
}

// costOf converts the incident cost to a decimal. Non-finite costs, which can
// only come from a corrupt store, report false.
func costOf(inc domain.Incident) (decimal.Decimal, bool) {
	if math.IsInf(inc.Cost, 0) || math.IsNaN(inc.Cost) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(inc.Cost), true
}

// tally accumulates decimal totals per key, remembering first-seen order.
type tally struct {
	keys   []string
	totals map[string]decimal.Decimal
}

func newTally() *tally {
	return &tally{totals: make(map[string]decimal.Decimal)}
}

func (t *tally) add(key string, v decimal.Decimal) {
	current, ok := t.totals[key]
	if !ok {
		t.keys = append(t.keys, key)
		current = decimal.Zero
	}
	t.totals[key] = current.Add(v)
}

// top returns the key with the highest total; only a strictly greater total
// displaces an earlier key.
func (t *tally) top() string {
	best := Unknown
	var bestTotal decimal.Decimal
	for i, key := range t.keys {
		if i == 0 || t.totals[key].GreaterThan(bestTotal) {
			best = key
			bestTotal = t.totals[key]
		}
	}
	return best
}
