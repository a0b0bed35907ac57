// Package numfmt formats numbers with locale-aware separators.
package numfmt

import (
	"math"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Defaults applied by New.
const (
	DefaultLocale        = "es"
	DefaultDecimalPlaces = 2
)

var printers sync.Map // language.Tag -> *message.Printer

func printerFor(tag language.Tag) *message.Printer {
	if p, ok := printers.Load(tag); ok {
		return p.(*message.Printer)
	}
	p, _ := printers.LoadOrStore(tag, message.NewPrinter(tag))
	return p.(*message.Printer)
}

// Format renders value in locale with exactly decimalPlaces fraction digits.
// An unparseable locale falls back to [DefaultLocale].
func Format(value float64, locale string, decimalPlaces int) string {
	if math.IsNaN(value) {
		return "NaN"
	}
	if decimalPlaces < 0 {
		decimalPlaces = 0
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}

	return printerFor(tag).Sprint(number.Decimal(value,
		number.MinFractionDigits(decimalPlaces),
		number.MaxFractionDigits(decimalPlaces),
	))
}

// Formatter carries the default locale and precision for a session.
type Formatter struct {
	Locale        string
	DecimalPlaces int
}

// New returns a Formatter, filling empty fields with the package defaults.
// decimalPlaces below zero selects [DefaultDecimalPlaces].
func New(locale string, decimalPlaces int) Formatter {
	if locale == "" {
		locale = DefaultLocale
	}
	if decimalPlaces < 0 {
		decimalPlaces = DefaultDecimalPlaces
	}
	return Formatter{Locale: locale, DecimalPlaces: decimalPlaces}
}

// Format renders value with the formatter's locale and precision.
func (f Formatter) Format(value float64) string {
	return Format(value, f.Locale, f.DecimalPlaces)
}
