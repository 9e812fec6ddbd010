package incidents

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/bissquit/risk-ledger/internal/domain"
)

// FormValue is a raw form input. It decodes from a JSON string, number or null
// so that malformed input such as "abc" for a cost reaches the validator
// instead of failing JSON decoding.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return errors.New("form value must be a string or a number")
	default:
		*v = FormValue(data)
	}
	return nil
}

// DraftFields holds the editable fields of an incident as entered by a user.
type DraftFields struct {
	Date               FormValue `json:"date" validate:"required,datetime=2006-01-02"`
	Team               FormValue `json:"team" validate:"required,team"`
	RootCause          FormValue `json:"root_cause" validate:"required"`
	AffectedClients    FormValue `json:"affected_clients" validate:"required,positive_int"`
	Cost               FormValue `json:"cost" validate:"required,positive_amount"`
	DisruptionDuration FormValue `json:"disruption_duration" validate:"omitempty,minutes"`
	RICriteria         FormValue `json:"ri_criteria" validate:"omitempty,ri_criteria"`
	Severity           FormValue `json:"severity" validate:"required,severity"`
	Resolution         FormValue `json:"resolution" validate:"required"`
}

func (f DraftFields) trimmed() DraftFields {
	trim := func(v FormValue) FormValue { return FormValue(strings.TrimSpace(string(v))) }
	return DraftFields{
		Date:               trim(f.Date),
		Team:               trim(f.Team),
		RootCause:          trim(f.RootCause),
		AffectedClients:    trim(f.AffectedClients),
		Cost:               trim(f.Cost),
		DisruptionDuration: trim(f.DisruptionDuration),
		RICriteria:         trim(f.RICriteria),
		Severity:           trim(f.Severity),
		Resolution:         trim(f.Resolution),
	}
}

// FieldsFromIncident fills draft fields from a stored incident.
func FieldsFromIncident(inc domain.Incident) DraftFields {
	fields := DraftFields{
		Date:            FormValue(inc.Date),
		Team:            FormValue(inc.Team),
		RootCause:       FormValue(inc.RootCause),
		AffectedClients: FormValue(strconv.FormatInt(inc.AffectedClients, 10)),
		Cost:            FormValue(strconv.FormatFloat(inc.Cost, 'f', -1, 64)),
		RICriteria:      FormValue(inc.RICriteria),
		Severity:        FormValue(inc.Severity),
		Resolution:      FormValue(inc.Resolution),
	}
	if inc.DisruptionDuration != nil {
		fields.DisruptionDuration = FormValue(strconv.FormatFloat(*inc.DisruptionDuration, 'f', -1, 64))
	}
	return fields
}

// Draft is a transient edit buffer. It either creates a new incident or edits
// the incident with a given id, and never shares memory with stored records.
type Draft struct {
	editID int64
	Fields DraftFields
}

// NewDraft returns an empty draft that creates a new incident on submit.
func NewDraft() Draft {
	return Draft{}
}

// EditDraft returns a draft prefilled from inc that replaces it on submit.
func EditDraft(inc domain.Incident) Draft {
	return Draft{editID: inc.ID, Fields: FieldsFromIncident(inc)}
}

// Editing returns the id of the edited incident, or false for a new incident.
func (d Draft) Editing() (int64, bool) {
	return d.editID, d.editID != 0
}
