// Package utils provides common utility functions for FilingIQ.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatUSD formats a number in US Dollar format ($1,234,567.89).
func FormatUSD(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	intPart := int64(amount)
	decPart := amount - float64(intPart)

	formatted := groupThousands(intPart)

	decStr := fmt.Sprintf("%.2f", decPart)
	formatted += decStr[1:] // skip the leading "0"

	if negative {
		return "-$" + formatted
	}
	return "$" + formatted
}

// FormatUSDCompact formats a number in compact notation.
// e.g., 1927345 → "$1.93M", 192734500000 → "$192.73B"
func FormatUSDCompact(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	prefix := "$"
	if negative {
		prefix = "-$"
	}

	switch {
	case amount >= 1e12:
		return fmt.Sprintf("%s%.2fT", prefix, amount/1e12)
	case amount >= 1e9:
		return fmt.Sprintf("%s%.2fB", prefix, amount/1e9)
	case amount >= 1e6:
		return fmt.Sprintf("%s%.2fM", prefix, amount/1e6)
	case amount >= 1e3:
		return fmt.Sprintf("%s%.2fK", prefix, amount/1e3)
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatPct formats a percentage with two decimals and sign.
func FormatPct(pct float64) string {
	if pct > 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatAmount renders a decimal string with its unit for display. Values
// that do not parse are returned unchanged.
func FormatAmount(value, unit string) string {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	switch strings.ToUpper(unit) {
	case "PERCENT", "%":
		return fmt.Sprintf("%.2f%%", f)
	case "USD_THOUSANDS":
		return FormatUSDCompact(f * 1e3)
	case "USD_MILLIONS":
		return FormatUSDCompact(f * 1e6)
	case "USD_BILLIONS":
		return FormatUSDCompact(f * 1e9)
	default:
		return FormatUSD(f)
	}
}

// groupThousands inserts comma separators every three digits.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
