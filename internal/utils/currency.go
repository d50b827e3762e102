package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount as prefix plus a grouped, two-decimal number,
// e.g. FormatCurrency("INR", 1234.5) == "INR1,234.50"
func FormatCurrency(prefix string, amount float64) string {
	fixed := decimal.NewFromFloat(amount).Round(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	if sign == "-" && strings.Trim(intPart+fracPart, "0") == "" {
		sign = ""
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}
