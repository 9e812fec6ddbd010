package incidents

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bissquit/risk-ledger/internal/domain"
)

// Repository errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrDuplicateID      = errors.New("duplicate incident id")
)

// ValidationError reports every rule a draft violates, keyed by field.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	fields := e.Fields.Names()
	return "invalid incident: " + strings.Join(fields, ", ")
}

// FieldMessages returns the message for each invalid field.
func (e *ValidationError) FieldMessages() map[string]string {
	return e.Fields
}

// FieldErrors maps a field name to a human-readable message.
// An empty map means the draft is valid.
type FieldErrors map[string]string

// Names returns the fields with errors in sorted order.
func (f FieldErrors) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckUniqueIDs returns ErrDuplicateID if two incidents share an id.
func CheckUniqueIDs(list []domain.Incident) error {
	seen := make(map[int64]bool, len(list))
	for _, inc := range list {
		if seen[inc.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateID, inc.ID)
		}
		seen[inc.ID] = true
	}
	return nil
}
