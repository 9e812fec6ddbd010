package domain

// DateLayout is the calendar date format used for incident dates.
const DateLayout = "2006-01-02"

// Severity represents the risk level of an incident.
type Severity string

// Severity levels, in ordinal order.
const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
)

var severityColors = map[Severity]string{
	SeverityLow:      "#28a745",
	SeverityModerate: "#ffc107",
	SeverityHigh:     "#dc3545",
}

// Severities returns all severity levels from lowest to highest.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityModerate, SeverityHigh}
}

// IsValid checks if the severity is one of the defined levels.
func (s Severity) IsValid() bool {
	_, ok := severityColors[s]
	return ok
}

// Color returns the display color of the severity level.
// Unknown levels are rendered grey.
func (s Severity) Color() string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return "#cccccc"
}

// Team is an organizational team that can own an incident.
type Team string

var teams = []Team{
	"Siebel",
	"Weavers",
	"Falcons",
	"BI",
	"CSA",
	"Digiata",
	"Client Comms",
	"Delivery Engineering",
	"Appian",
	"Complex-transactions",
	"Rainmakers",
	"Rangers",
	"Hybrid Operations",
	"Ops Platform Core",
	"Group Savings",
	"Platform Foundation",
	"BPM",
}

// Teams returns the fixed list of teams in display order.
func Teams() []Team {
	out := make([]Team, len(teams))
	copy(out, teams)
	return out
}

// IsValid checks if the team is in the fixed team list.
func (t Team) IsValid() bool {
	for _, known := range teams {
		if t == known {
			return true
		}
	}
	return false
}

// RICriteria is the qualifying condition that makes an event a risk incident.
type RICriteria string

// RI criteria.
const (
	RICriteriaMonetaryValue  RICriteria = "Monetary Value of 100k (gain or loss)"
	RICriteriaDataBreach     RICriteria = "Bulk data breach > or more data subjects"
	RICriteriaDisruption     RICriteria = "Business disruption > 15 minutes externally and 60 min internally"
	RICriteriaFraud          RICriteria = "Fraud incident"
	RICriteriaContractBreach RICriteria = "Contractual breaches"
	RICriteriaExecutive      RICriteria = "Deemed by COO or the Executives"
	RICriteriaReputation     RICriteria = "Potential reputational damage > 25 Retail clients (include IFA's or any institutional client)"
)

// RICriteriaList returns all RI criteria in display order.
func RICriteriaList() []RICriteria {
	return []RICriteria{
		RICriteriaMonetaryValue,
		RICriteriaDataBreach,
		RICriteriaDisruption,
		RICriteriaFraud,
		RICriteriaContractBreach,
		RICriteriaExecutive,
		RICriteriaReputation,
	}
}

// IsValid checks if the criteria is one of the defined values.
func (c RICriteria) IsValid() bool {
	for _, known := range RICriteriaList() {
		if c == known {
			return true
		}
	}
	return false
}

// Incident represents a recorded operational risk incident.
type Incident struct {
	ID                 int64      `json:"id" yaml:"id"`
	Date               string     `json:"date" yaml:"date"`
	Team               Team       `json:"team" yaml:"team"`
	RootCause          string     `json:"root_cause" yaml:"root_cause"`
	AffectedClients    int64      `json:"affected_clients" yaml:"affected_clients"`
	Cost               float64    `json:"cost" yaml:"cost"`
	DisruptionDuration *float64   `json:"disruption_duration" yaml:"disruption_duration"`
	RICriteria         RICriteria `json:"ri_criteria" yaml:"ri_criteria"`
	Severity           Severity   `json:"severity" yaml:"severity"`
	Resolution         string     `json:"resolution" yaml:"resolution"`
}
