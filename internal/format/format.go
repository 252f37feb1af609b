// Package format renders locale-aware numbers for insight strings and
// exports.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

func printer(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Percent renders v (a fraction, 0.12 = 12%) as a localized percentage with
// the given number of fraction digits. Non-finite values render as 0.
func Percent(v float64, digits int, locale string) string {
	return printer(locale).Sprint(number.Percent(sanitize(v),
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))
}

// Fixed renders v as a localized decimal with exactly the given number of
// fraction digits. Non-finite values render as 0.
func Fixed(v float64, digits int, locale string) string {
	return printer(locale).Sprint(number.Decimal(sanitize(v),
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))
}
