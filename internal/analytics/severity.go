package analytics

import (
	"fmt"
	"strings"

	"github.com/bissquit/risk-ledger/internal/domain"
)

const noTeams = "No Teams"

// SeverityBucket lists the distinct teams with at least one incident at a severity.
type SeverityBucket struct {
	Severity domain.Severity `json:"severity"`
	Color    string          `json:"color"`
	Teams    []domain.Team   `json:"teams"`
	Count    int             `json:"count"`
}

// SeverityDistribution is the teams-per-severity view. Buckets always has one
// entry per severity level, lowest first.
type SeverityDistribution struct {
	Buckets []SeverityBucket `json:"buckets"`
	Chart   Chart            `json:"chart"`
}

// GroupBySeverity collects, for each severity level, the teams that experienced
// an incident of that severity. Teams keep first-seen order. Incidents with an
// unknown severity are ignored.
func GroupBySeverity(incidents []domain.Incident) SeverityDistribution {
	levels := domain.Severities()
	index := make(map[domain.Severity]int, len(levels))
	buckets := make([]SeverityBucket, len(levels))
	seen := make([]map[domain.Team]bool, len(levels))

	for i, s := range levels {
		index[s] = i
		buckets[i] = SeverityBucket{Severity: s, Color: s.Color(), Teams: []domain.Team{}}
		seen[i] = make(map[domain.Team]bool)
	}

	for _, inc := range incidents {
		i, ok := index[inc.Severity]
		if !ok || seen[i][inc.Team] {
			continue
		}
		seen[i][inc.Team] = true
		buckets[i].Teams = append(buckets[i].Teams, inc.Team)
	}

	chart := Chart{
		Label:  "Number of Teams",
		Labels: make([]string, len(buckets)),
		Values: make([]float64, len(buckets)),
		Colors: make([]string, len(buckets)),
	}
	for i := range buckets {
		buckets[i].Count = len(buckets[i].Teams)
		chart.Labels[i] = severityLabel(buckets[i])
		chart.Values[i] = float64(buckets[i].Count)
		chart.Colors[i] = buckets[i].Color
	}

	return SeverityDistribution{Buckets: buckets, Chart: chart}
}

func severityLabel(b SeverityBucket) string {
	if len(b.Teams) == 0 {
		return fmt.Sprintf("%s: %s", b.Severity, noTeams)
	}
	names := make([]string, len(b.Teams))
	for i, t := range b.Teams {
		names[i] = string(t)
	}
	return fmt.Sprintf("%s: %s", b.Severity, strings.Join(names, ", "))
}
