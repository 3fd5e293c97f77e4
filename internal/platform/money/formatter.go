// Package money renders prices and totals in the storefront's configured
// locale and currency.
package money

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts with the currency symbol, locale digit grouping,
// and the fraction digits the currency uses for cash amounts. The same amount
// always renders to the same string.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
	scale   int
}

// NewFormatter builds a formatter for the given BCP 47 locale and ISO 4217
// currency code.
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("money: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("money: parse currency %q: %w", currencyCode, err)
	}
	scale, _ := currency.Cash.Rounding(unit)
	return &Formatter{
		printer: message.NewPrinter(tag),
		unit:    unit,
		scale:   scale,
	}, nil
}

// Format renders the amount as symbol plus grouped digits, for example
// "$1,234.50" for en-US and USD.
func (f *Formatter) Format(amount float64) string {
	return f.printer.Sprintf("%v%v", currency.Symbol(f.unit), number.Decimal(amount, number.Scale(f.scale)))
}

// Currency returns the ISO 4217 code the formatter renders.
func (f *Formatter) Currency() string {
	return f.unit.String()
}
