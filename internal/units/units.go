// Package units converts raw filing values between USD scale units
// (thousands, millions, billions) and the canonical base units the formula
// engine computes in: raw USD and percent. Percentages are never rescaled.
package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical unit names.
const (
	UnitUSD          = "USD"
	UnitUSDThousands = "USD_thousands"
	UnitUSDMillions  = "USD_millions"
	UnitUSDBillions  = "USD_billions"
	UnitPercent      = "percent"
)

// ErrUnknownUnit is returned when a unit name is not in the scale table.
var ErrUnknownUnit = fmt.Errorf("unknown unit")

// The whole pipeline computes in decimal. 50 digits of division precision
// keeps chained formulas exact well past the 2-decimal reporting quantum.
func init() {
	if decimal.DivisionPrecision < 50 {
		decimal.DivisionPrecision = 50
	}
}

// scales maps each unit to its multiplier into raw USD. Percent is a
// pass-through: percentage values carry no USD scale.
var scales = map[string]decimal.Decimal{
	UnitUSD:          decimal.NewFromInt(1),
	UnitUSDThousands: decimal.NewFromInt(1_000),
	UnitUSDMillions:  decimal.NewFromInt(1_000_000),
	UnitUSDBillions:  decimal.NewFromInt(1_000_000_000),
	UnitPercent:      decimal.NewFromInt(1),
}

// unitAliases maps the spellings seen in filings and question contexts to
// canonical unit names.
var unitAliases = map[string]string{
	"usd":              UnitUSD,
	"$":                UnitUSD,
	"dollars":          UnitUSD,
	"usd_thousands":    UnitUSDThousands,
	"thousands":        UnitUSDThousands,
	"thousands of usd": UnitUSDThousands,
	"usd_millions":     UnitUSDMillions,
	"millions":         UnitUSDMillions,
	"million":          UnitUSDMillions,
	"millions of usd":  UnitUSDMillions,
	"usd_billions":     UnitUSDBillions,
	"billions":         UnitUSDBillions,
	"billion":          UnitUSDBillions,
	"billions of usd":  UnitUSDBillions,
	"percent":          UnitPercent,
	"%":                UnitPercent,
	"pct":              UnitPercent,
}

// NormalizedValue is a value converted to a canonical unit.
type NormalizedValue struct {
	Value decimal.Decimal
	Unit  string
}

// Canonical resolves a unit spelling to its canonical name.
func Canonical(unit string) (string, error) {
	if unit == "" {
		return UnitUSD, nil
	}
	if _, ok := scales[unit]; ok {
		return unit, nil
	}
	key := strings.ToLower(strings.TrimSpace(unit))
	if canon, ok := unitAliases[key]; ok {
		return canon, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

// Normalize converts a decimal string between units:
// base = value * scale[from]; result = base / scale[to].
// When isPercent is true the value is returned unchanged with unit percent.
func Normalize(value string, fromUnit, toUnit string, isPercent bool) (NormalizedValue, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return NormalizedValue{}, fmt.Errorf("invalid decimal %q: %w", value, err)
	}

	if isPercent {
		return NormalizedValue{Value: v, Unit: UnitPercent}, nil
	}

	from, err := Canonical(fromUnit)
	if err != nil {
		return NormalizedValue{}, err
	}
	to, err := Canonical(toUnit)
	if err != nil {
		return NormalizedValue{}, err
	}

	base := v.Mul(scales[from])
	result := base.Div(scales[to])
	return NormalizedValue{Value: result, Unit: to}, nil
}

// ToUSD is the common case: convert a raw value into base USD.
func ToUSD(value, fromUnit string) (NormalizedValue, error) {
	return Normalize(value, fromUnit, UnitUSD, false)
}
