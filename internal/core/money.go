// Package core provides money parsing and handling utilities.
//
// Amounts are Rupiah values kept as decimal.Decimal. Display follows the
// Indonesian convention of '.' as thousands separator with no fraction digits.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// ParseAmount converts user or CSV input into a non-negative decimal.
//
// A leading "Rp" and surrounding spaces are ignored, and a decimal comma is
// accepted when no dot is present:
//
//	ParseAmount("1500000")     -> 1500000
//	ParseAmount("Rp 250000.5") -> 250000.5
//	ParseAmount("12,5")        -> 12.5
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// GroupThousands rounds to an integer and inserts '.' every three digits.
func GroupThousands(d decimal.Decimal) string {
	r := d.Round(0)
	digits := r.Abs().String()

	var b strings.Builder
	if r.IsNegative() {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatRupiah renders a full amount, e.g. "Rp 1.234.567".
func FormatRupiah(d decimal.Decimal) string {
	return "Rp " + GroupThousands(d)
}

// FormatRupiahCompact renders dashboard card values. Billions use "M" (miliar)
// and millions use "Jt" (juta), both with one decimal; smaller values are
// printed in full. The unit is chosen after rounding, so 999.95 juta reads as
// 1.0 M.
func FormatRupiahCompact(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	millions := d.Div(million).Round(1)
	switch {
	case d.GreaterThanOrEqual(billion), millions.GreaterThanOrEqual(thousand):
		return sign + "Rp" + d.Div(billion).StringFixed(1) + "M"
	case d.GreaterThanOrEqual(million):
		return sign + "Rp" + millions.StringFixed(1) + "Jt"
	default:
		return sign + "Rp" + GroupThousands(d)
	}
}

// Percentage returns part/total*100 rounded to one decimal, or 0 for an empty total.
func Percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).Round(1).InexactFloat64()
}
