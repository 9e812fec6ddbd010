package incidents

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Field names used as FieldErrors keys.
const (
	FieldDate               = "date"
	FieldTeam               = "team"
	FieldRootCause          = "root_cause"
	FieldAffectedClients    = "affected_clients"
	FieldCost               = "cost"
	FieldDisruptionDuration = "disruption_duration"
	FieldRICriteria         = "ri_criteria"
	FieldSeverity           = "severity"
	FieldResolution         = "resolution"
)

// fieldMessages maps field -> failed tag -> message. The "" tag is the fallback.
var fieldMessages = map[string]map[string]string{
	FieldDate: {
		"":         "Date is required.",
		"datetime": "Date must use the yyyy-MM-dd format.",
	},
	FieldTeam: {
		"":     "Team selection is required.",
		"team": "Select a team from the list.",
	},
	FieldRootCause: {
		"": "Root cause is required.",
	},
	FieldAffectedClients: {
		"":             "Affected clients field is required.",
		"positive_int": "Affected clients must be a positive whole number.",
	},
	FieldCost: {
		"": "Enter a valid cost.",
	},
	FieldDisruptionDuration: {
		"": "Disruption duration must be a non-negative number of minutes.",
	},
	FieldRICriteria: {
		"": "Select RI criteria from the list.",
	},
	FieldSeverity: {
		"": "Select a severity level.",
	},
	FieldResolution: {
		"": "Resolution is required.",
	},
}

// Validator checks drafts against the required-field and type rules.
// It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the incident rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"team": func(fl validator.FieldLevel) bool {
			return domain.Team(fl.Field().String()).IsValid()
		},
		"severity": func(fl validator.FieldLevel) bool {
			return domain.Severity(fl.Field().String()).IsValid()
		},
		"ri_criteria": func(fl validator.FieldLevel) bool {
			return domain.RICriteria(fl.Field().String()).IsValid()
		},
		"positive_int": func(fl validator.FieldLevel) bool {
			n, err := strconv.ParseInt(fl.Field().String(), 10, 64)
			return err == nil && n > 0
		},
		"positive_amount": func(fl validator.FieldLevel) bool {
			f, ok := parseFloat(fl.Field().String())
			return ok && f > 0
		},
		"minutes": func(fl validator.FieldLevel) bool {
			f, ok := parseFloat(fl.Field().String())
			return ok && f >= 0
		},
	}
	for tag, fn := range rules {
		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation(tag, fn)
	}

	return &Validator{validate: v}
}

// parseFloat reads a decimal number and reports whether it is a finite
// float64. Values beyond float64 range overflow to infinity; values too small
// underflow to zero and fail the positivity checks.
func parseFloat(s string) (float64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

var defaultValidator = NewValidator()

// Validate checks fields with the default validator.
func Validate(fields DraftFields) FieldErrors {
	return defaultValidator.Validate(fields)
}

// Validate returns one message per violated field. Surrounding whitespace is
// ignored, so a blank value counts as missing.
func (v *Validator) Validate(fields DraftFields) FieldErrors {
	errs := FieldErrors{}

	err := v.validate.Struct(fields.trimmed())
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable with a non-struct argument.
		errs["_"] = err.Error()
		return errs
	}

	for _, fe := range verrs {
		errs[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return errs
}

func message(field, tag string) string {
	msgs, ok := fieldMessages[field]
	if !ok {
		return "Invalid value."
	}
	if m, ok := msgs[tag]; ok {
		return m
	}
	return msgs[""]
}

// Parse validates fields and converts them to a typed incident without an id.
func (v *Validator) Parse(fields DraftFields) (domain.Incident, FieldErrors) {
	if errs := v.Validate(fields); len(errs) > 0 {
		return domain.Incident{}, errs
	}

	f := fields.trimmed()
	errs := FieldErrors{}

	clients, err := strconv.ParseInt(string(f.AffectedClients), 10, 64)
	if err != nil {
		errs[FieldAffectedClients] = message(FieldAffectedClients, "positive_int")
	}

	cost, ok := parseFloat(string(f.Cost))
	if !ok || cost <= 0 {
		errs[FieldCost] = message(FieldCost, "")
	}

	var duration *float64
	if f.DisruptionDuration != "" {
		minutes, ok := parseFloat(string(f.DisruptionDuration))
		if !ok || minutes < 0 {
			errs[FieldDisruptionDuration] = message(FieldDisruptionDuration, "")
		} else {
			duration = &minutes
		}
	}

	if len(errs) > 0 {
		return domain.Incident{}, errs
	}

	return domain.Incident{
		Date:               string(f.Date),
		Team:               domain.Team(f.Team),
		RootCause:          string(f.RootCause),
		AffectedClients:    clients,
		Cost:               cost,
		DisruptionDuration: duration,
		RICriteria:         domain.RICriteria(f.RICriteria),
		Severity:           domain.Severity(f.Severity),
		Resolution:         string(f.Resolution),
	}, FieldErrors{}
}

// ValidateIncident checks an already typed incident against the same rules.
func (v *Validator) ValidateIncident(inc domain.Incident) FieldErrors {
	return v.Validate(FieldsFromIncident(inc))
}
