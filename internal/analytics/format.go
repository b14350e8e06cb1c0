package analytics

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money renders a dollar amount with grouping and two decimals, sign after
// the currency symbol: "$1,234.50", "$-12.00".
func Money(v float64) string {
	return printer.Sprintf("$%.2f", round2(v))
}

// AbsMoney is Money of |v|, used for loss figures shown unsigned.
func AbsMoney(v float64) string {
	return Money(math.Abs(v))
}

// Percent renders a percentage with one decimal: "56.3%".
func Percent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

// Count renders an integer with grouping.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Decimal renders a plain two-decimal number: "1.85".
func Decimal(v float64) string {
	return printer.Sprintf("%.2f", round2(v))
}
