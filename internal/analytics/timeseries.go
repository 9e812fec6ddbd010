package analytics

import (
	"sort"
	"time"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// MonthLabelLayout renders a month bucket, e.g. "March 2025".
const MonthLabelLayout = "January 2006"

const costColor = "#dc3545"

// MonthlyCost is the summed incident cost for one calendar month.
type MonthlyCost struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Cost  float64   `json:"cost"`
}

// CostTrend is the cost-over-time view, ordered chronologically.
type CostTrend struct {
	Points  []MonthlyCost `json:"points"`
	Skipped int           `json:"skipped"`
	Chart   Chart         `json:"chart"`
}

// MonthlyCosts bins incidents by calendar month of their date and sums cost per
// bin. Bins are ordered by month start, not by label. Incidents whose date does
// not parse as yyyy-MM-dd, or whose cost is not finite, are left out and
// counted in Skipped.
func MonthlyCosts(incidents []domain.Incident) CostTrend {
	sums := make(map[time.Time]decimal.Decimal)
	skipped := 0

	for _, inc := range incidents {
		d, err := time.Parse(domain.DateLayout, inc.Date)
		cost, ok := costOf(inc)
		if err != nil || !ok {
			skipped++
			continue
		}
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		sums[month] = sums[month].Add(cost)
	}

	months := make([]time.Time, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	points := make([]MonthlyCost, len(months))
	chart := Chart{
		Label:  "Incident Cost (R)",
		Labels: make([]string, len(months)),
		Values: make([]float64, len(months)),
		Colors: []string{costColor},
	}
	for i, m := range months {
		cost := sums[m].InexactFloat64()
		points[i] = MonthlyCost{Label: m.Format(MonthLabelLayout), Start: m, Cost: cost}
		chart.Labels[i] = points[i].Label
		chart.Values[i] = cost
	}

	return CostTrend{Points: points, Skipped: skipped, Chart: chart}
}
