package analytics

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts for display in a given locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a formatter for a BCP 47 locale such as "en" or "de".
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{printer: message.NewPrinter(tag)}, nil
}

// Amount formats v with locale digit grouping and at most two decimals.
// A nil formatter uses English.
func (f *Formatter) Amount(v float64) string {
	p := message.NewPrinter(language.English)
	if f != nil {
		p = f.printer
	}
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}
