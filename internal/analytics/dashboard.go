package analytics

import (
	"github.com/bissquit/risk-ledger/internal/domain"
)

// Chart is a chart-ready series: parallel labels and values plus colors.
// Colors has either one entry per label or a single entry for the whole series.
type Chart struct {
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors"`
}

// TeamCost is the summed incident cost of one team.
type TeamCost struct {
	Team domain.Team `json:"team"`
	Cost float64     `json:"cost"`
}

// CostByTeam sums incident cost per team, in order of first appearance.
func CostByTeam(incidents []domain.Incident) []TeamCost {
	t := newTally()
	for _, inc := range incidents {
		cost, ok := costOf(inc)
		if inc.Team == "" || !ok {
			continue
		}
		t.add(string(inc.Team), cost)
	}

	out := make([]TeamCost, len(t.keys))
	for i, key := range t.keys {
		out[i] = TeamCost{Team: domain.Team(key), Cost: t.totals[key].InexactFloat64()}
	}
	return out
}

// Dashboard bundles every derived view of the register.
type Dashboard struct {
	Summary          Summary              `json:"summary"`
	TotalCostDisplay string               `json:"total_cost_display"`
	Severity         SeverityDistribution `json:"severity"`
	CostTrend        CostTrend            `json:"cost_trend"`
	TeamCosts        []TeamCost           `json:"team_costs"`
}

// BuildDashboard recomputes all views from incidents.
func BuildDashboard(incidents []domain.Incident, f *Formatter) Dashboard {
	summary := Summarize(incidents)
	return Dashboard{
		Summary:          summary,
		TotalCostDisplay: f.Amount(summary.TotalCost),
		Severity:         GroupBySeverity(incidents),
		CostTrend:        MonthlyCosts(incidents),
		TeamCosts:        CostByTeam(incidents),
	}
}
