package metrics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/filingiq/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Rounding Policy
// ════════════════════════════════════════════════════════════════════

// Rounding mode names accepted on the wire.
const (
	ModeHalfEven = "ROUND_HALF_EVEN" // banker's rounding, the reporting default
	ModeHalfUp   = "ROUND_HALF_UP"
)

// Rounding is the quantization policy applied exactly once, after the full
// formula has been evaluated at working precision.
type Rounding struct {
	Quantum string `json:"quantize"` // e.g. "0.01"
	Mode    string `json:"mode"`     // ROUND_HALF_EVEN or ROUND_HALF_UP
}

// DefaultRounding is two decimal places, half-to-even.
func DefaultRounding() Rounding {
	return Rounding{Quantum: "0.01", Mode: ModeHalfEven}
}

// Apply quantizes a value per the policy and renders it with a fixed number
// of decimal places ("15" quantized to "0.01" renders as "15.00").
func (r Rounding) Apply(v decimal.Decimal) (string, error) {
	quantum := r.Quantum
	if quantum == "" {
		quantum = "0.01"
	}
	q, err := decimal.NewFromString(quantum)
	if err != nil {
		return "", fmt.Errorf("invalid rounding quantum %q: %w", r.Quantum, err)
	}
	places := -q.Exponent()
	if places < 0 {
		places = 0
	}

	var rounded decimal.Decimal
	switch r.Mode {
	case ModeHalfUp:
		rounded = v.Round(places)
	case ModeHalfEven, "":
		rounded = v.RoundBank(places)
	default:
		return "", fmt.Errorf("unknown rounding mode %q", r.Mode)
	}
	return rounded.StringFixed(places), nil
}

// ════════════════════════════════════════════════════════════════════
// Compute
// ════════════════════════════════════════════════════════════════════

// Result is a computed metric value with its replayable trace.
type Result struct {
	Value string                   `json:"value"`
	Trace []models.ComputationStep `json:"trace"`
}

// Compute evaluates a registered formula over decimal-string inputs. The
// period is provenance only; it never influences the arithmetic. Inputs are
// parsed to decimals at full working precision, the formula runs with one
// trace step per atomic operation, and the rounding policy is applied once
// at the end.
func Compute(metricID string, period models.Period, inputs map[string]string, rounding Rounding) (Result, error) {
	id := strings.ToUpper(strings.TrimSpace(metricID))

	f, ok := registry[id]
	if !ok {
		return Result{}, &UnsupportedMetricError{MetricID: id}
	}

	for _, req := range f.requires {
		if _, present := inputs[req]; !present {
			return Result{}, &MissingInputError{MetricID: id, Name: req}
		}
	}

	din := make(map[string]decimal.Decimal, len(inputs))
	for name, raw := range inputs {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return Result{}, fmt.Errorf("metric %s: input %s is not a decimal (%q): %w", id, name, raw, err)
		}
		din[name] = d
	}

	tr := &tracer{}
	value := f.compute(din, tr)

	rendered, err := rounding.Apply(value)
	if err != nil {
		return Result{}, fmt.Errorf("metric %s: %w", id, err)
	}

	return Result{Value: rendered, Trace: tr.steps}, nil
}

// IsPercentMetric reports whether a metric id conventionally yields a
// percentage, used by callers to type the final answer.
func IsPercentMetric(metricID string) bool {
	id := strings.ToUpper(metricID)
	switch {
	case strings.Contains(id, "MARGIN"),
		strings.Contains(id, "GROWTH"),
		strings.Contains(id, "PERCENTAGE"):
		return true
	}
	switch id {
	case "ROE", "ROA", "ROIC", "FCF_CONVERSION", "CAGR":
		return true
	}
	return false
}

// IsRatioMetric reports whether a metric id yields a unitless ratio.
func IsRatioMetric(metricID string) bool {
	switch strings.ToUpper(metricID) {
	case "CURRENT_RATIO", "QUICK_RATIO", "DEBT_TO_EQUITY", "DEBT_RATIO", "DIVIDE":
		return true
	}
	return false
}
