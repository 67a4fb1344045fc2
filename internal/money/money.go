// Package money renders peso amounts the way the field app shows them:
// "$1.234.567" for Spanish, "$1,234,567" for English.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	colombia = language.MustParse("es-CO")
	us       = language.AmericanEnglish
)

type Formatter struct {
	p *message.Printer
}

// NewFormatter picks the number conventions for a UI locale ("es" or "en").
// Anything else falls back to Spanish (Colombia).
func NewFormatter(locale string) *Formatter {
	tag := colombia
	if locale == "en" || locale == "en-US" {
		tag = us
	}
	return &Formatter{p: message.NewPrinter(tag)}
}

// Amount formats d with the currency sign, grouping, and cents only when
// there are any.
func (f *Formatter) Amount(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	if d.IsInteger() {
		return sign + "$" + f.p.Sprint(number.Decimal(d.IntPart()))
	}
	return sign + "$" + f.p.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

// Count formats an integer quantity with grouping.
func (f *Formatter) Count(n int) string {
	return f.p.Sprint(number.Decimal(n))
}

var defaultFormatter = NewFormatter("es")

// Format renders d with the default Spanish (Colombia) conventions.
func Format(d decimal.Decimal) string {
	return defaultFormatter.Amount(d)
}
