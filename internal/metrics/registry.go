// Package metrics implements the deterministic formula compute engine and
// the metric alias resolver. The registry is immutable, process-wide state
// built once at init; every computation runs in arbitrary-precision decimal
// with one replayable trace step per atomic operation and a single rounding
// application at the very end.
package metrics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/filingiq/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Metric Specs
// ════════════════════════════════════════════════════════════════════

// MetricSpec describes a resolvable metric: its canonical id, the input
// names its formula requires, and a human-readable formula hint.
type MetricSpec struct {
	MetricID       string   `json:"metric_id"`
	RequiredInputs []string `json:"required_inputs"`
	FormulaHint    string   `json:"formula_hint"`
}

// ════════════════════════════════════════════════════════════════════
// Errors
// ════════════════════════════════════════════════════════════════════

// MissingInputError reports a required formula input absent from the call.
type MissingInputError struct {
	MetricID string
	Name     string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("metric %s: missing input %s", e.MetricID, e.Name)
}

// UnsupportedMetricError reports a metric id absent from the registry.
type UnsupportedMetricError struct {
	MetricID string
}

func (e *UnsupportedMetricError) Error() string {
	return fmt.Sprintf("unsupported metric_id: %s", e.MetricID)
}

// ════════════════════════════════════════════════════════════════════
// Tracer
// ════════════════════════════════════════════════════════════════════

// prevRef is the trace argument naming the previous step's result.
const prevRef = "<prev>"

// tracer accumulates one ComputationStep per atomic operation so a trace
// replays to the same value from the same inputs.
type tracer struct {
	steps []models.ComputationStep
}

func (t *tracer) record(op string, args []string, result decimal.Decimal) decimal.Decimal {
	t.steps = append(t.steps, models.ComputationStep{
		Op:     op,
		Args:   args,
		Result: result.String(),
	})
	return result
}

// ════════════════════════════════════════════════════════════════════
// Formula Registry
// ════════════════════════════════════════════════════════════════════

type computeFn func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal

type formula struct {
	requires []string
	hint     string
	compute  computeFn
}

// registry is the fixed formula table, populated once below and never
// mutated at runtime. Concurrent reads need no synchronization.
var registry = map[string]formula{
	// ── Profitability ──
	"EBITDA": {
		requires: []string{"OPERATING_INCOME", "DEPRECIATION", "AMORTIZATION"},
		hint:     "OPERATING_INCOME + DEPRECIATION + AMORTIZATION",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			a := tr.record("ADD", []string{"OPERATING_INCOME", "DEPRECIATION"},
				in["OPERATING_INCOME"].Add(in["DEPRECIATION"]))
			return tr.record("ADD", []string{prevRef, "AMORTIZATION"}, a.Add(in["AMORTIZATION"]))
		},
	},
	"EBIT": {
		requires: []string{"OPERATING_INCOME"},
		hint:     "OPERATING_INCOME",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("IDENTITY", []string{"OPERATING_INCOME"}, in["OPERATING_INCOME"])
		},
	},
	"OPERATING_MARGIN": {
		requires: []string{"OPERATING_INCOME", "REVENUE"},
		hint:     "OPERATING_INCOME / REVENUE * 100",
		compute:  marginOf("OPERATING_INCOME", "REVENUE"),
	},
	"GROSS_MARGIN": {
		requires: []string{"GROSS_PROFIT", "REVENUE"},
		hint:     "GROSS_PROFIT / REVENUE * 100",
		compute:  marginOf("GROSS_PROFIT", "REVENUE"),
	},
	"NET_MARGIN": {
		requires: []string{"NET_INCOME", "REVENUE"},
		hint:     "NET_INCOME / REVENUE * 100",
		compute:  marginOf("NET_INCOME", "REVENUE"),
	},
	"GROSS_PROFIT": {
		requires: []string{"GROSS_PROFIT"},
		hint:     "GROSS_PROFIT",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("IDENTITY", []string{"GROSS_PROFIT"}, in["GROSS_PROFIT"])
		},
	},

	// ── Growth ──
	"REVENUE_GROWTH": {
		requires: []string{"REVENUE_CURRENT", "REVENUE_PRIOR"},
		hint:     "(REVENUE_CURRENT - REVENUE_PRIOR) / REVENUE_PRIOR * 100",
		compute:  growthOf("REVENUE_CURRENT", "REVENUE_PRIOR"),
	},
	"YOY_GROWTH": {
		requires: []string{"VALUE_CURRENT", "VALUE_PRIOR"},
		hint:     "(VALUE_CURRENT - VALUE_PRIOR) / VALUE_PRIOR * 100",
		compute:  growthOf("VALUE_CURRENT", "VALUE_PRIOR"),
	},
	"CAGR": {
		requires: []string{"VALUE_START", "VALUE_END", "YEARS"},
		hint:     "((VALUE_END / VALUE_START) ^ (1/YEARS) - 1) * 100",
		compute:  computeCAGR,
	},

	// ── Liquidity ──
	"CURRENT_RATIO": {
		requires: []string{"CURRENT_ASSETS", "CURRENT_LIABILITIES"},
		hint:     "CURRENT_ASSETS / CURRENT_LIABILITIES",
		compute:  ratioOf("CURRENT_ASSETS", "CURRENT_LIABILITIES"),
	},
	"QUICK_RATIO": {
		requires: []string{"CURRENT_ASSETS", "INVENTORY", "CURRENT_LIABILITIES"},
		hint:     "(CURRENT_ASSETS - INVENTORY) / CURRENT_LIABILITIES",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			quick := tr.record("SUB", []string{"CURRENT_ASSETS", "INVENTORY"},
				in["CURRENT_ASSETS"].Sub(in["INVENTORY"]))
			return safeDiv(tr, prevRef, "CURRENT_LIABILITIES", quick, in["CURRENT_LIABILITIES"])
		},
	},
	"WORKING_CAPITAL": {
		requires: []string{"CURRENT_ASSETS", "CURRENT_LIABILITIES"},
		hint:     "CURRENT_ASSETS - CURRENT_LIABILITIES",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("SUB", []string{"CURRENT_ASSETS", "CURRENT_LIABILITIES"},
				in["CURRENT_ASSETS"].Sub(in["CURRENT_LIABILITIES"]))
		},
	},

	// ── Leverage ──
	"DEBT_TO_EQUITY": {
		requires: []string{"TOTAL_DEBT", "TOTAL_EQUITY"},
		hint:     "TOTAL_DEBT / TOTAL_EQUITY",
		compute:  ratioOf("TOTAL_DEBT", "TOTAL_EQUITY"),
	},
	"DEBT_RATIO": {
		requires: []string{"TOTAL_DEBT", "TOTAL_ASSETS"},
		hint:     "TOTAL_DEBT / TOTAL_ASSETS",
		compute:  ratioOf("TOTAL_DEBT", "TOTAL_ASSETS"),
	},

	// ── Returns ──
	"ROE": {
		requires: []string{"NET_INCOME", "TOTAL_EQUITY"},
		hint:     "NET_INCOME / TOTAL_EQUITY * 100",
		compute:  marginOf("NET_INCOME", "TOTAL_EQUITY"),
	},
	"ROA": {
		requires: []string{"NET_INCOME", "TOTAL_ASSETS"},
		hint:     "NET_INCOME / TOTAL_ASSETS * 100",
		compute:  marginOf("NET_INCOME", "TOTAL_ASSETS"),
	},
	"ROIC": {
		requires: []string{"NOPAT", "INVESTED_CAPITAL"},
		hint:     "NOPAT / INVESTED_CAPITAL * 100",
		compute:  marginOf("NOPAT", "INVESTED_CAPITAL"),
	},

	// ── Cash flow ──
	"FREE_CASH_FLOW": {
		requires: []string{"OPERATING_CASH_FLOW", "CAPEX"},
		hint:     "OPERATING_CASH_FLOW - CAPEX",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("SUB", []string{"OPERATING_CASH_FLOW", "CAPEX"},
				in["OPERATING_CASH_FLOW"].Sub(in["CAPEX"]))
		},
	},
	"FCF_CONVERSION": {
		requires: []string{"FREE_CASH_FLOW", "EBITDA"},
		hint:     "FREE_CASH_FLOW / EBITDA * 100",
		compute:  marginOf("FREE_CASH_FLOW", "EBITDA"),
	},

	// ── Primitive arithmetic ──
	"PERCENTAGE_OF": {
		requires: []string{"PART", "WHOLE"},
		hint:     "PART / WHOLE * 100",
		compute:  marginOf("PART", "WHOLE"),
	},
	"MULTIPLY": {
		requires: []string{"FACTOR_A", "FACTOR_B"},
		hint:     "FACTOR_A * FACTOR_B",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("MUL", []string{"FACTOR_A", "FACTOR_B"},
				in["FACTOR_A"].Mul(in["FACTOR_B"]))
		},
	},
	"DIVIDE": {
		requires: []string{"NUMERATOR", "DENOMINATOR"},
		hint:     "NUMERATOR / DENOMINATOR",
		compute:  ratioOf("NUMERATOR", "DENOMINATOR"),
	},
	"ADD": {
		requires: []string{"ADDEND_A", "ADDEND_B"},
		hint:     "ADDEND_A + ADDEND_B",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("ADD", []string{"ADDEND_A", "ADDEND_B"},
				in["ADDEND_A"].Add(in["ADDEND_B"]))
		},
	},
	"SUBTRACT": {
		requires: []string{"MINUEND", "SUBTRAHEND"},
		hint:     "MINUEND - SUBTRAHEND",
		compute: func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
			return tr.record("SUB", []string{"MINUEND", "SUBTRAHEND"},
				in["MINUEND"].Sub(in["SUBTRAHEND"]))
		},
	},
}

// Supported reports whether a metric id has a registered formula.
func Supported(metricID string) bool {
	_, ok := registry[metricID]
	return ok
}

// Spec returns the MetricSpec for a registered metric id.
func Spec(metricID string) (MetricSpec, bool) {
	f, ok := registry[metricID]
	if !ok {
		return MetricSpec{}, false
	}
	reqs := make([]string, len(f.requires))
	copy(reqs, f.requires)
	return MetricSpec{MetricID: metricID, RequiredInputs: reqs, FormulaHint: f.hint}, true
}

// ────────────────────────────────────────────────────────────────────
// Formula building blocks
// ────────────────────────────────────────────────────────────────────

var hundred = decimal.NewFromInt(100)

// safeDiv divides with the filing-domain convention that an undefined
// ratio (zero denominator) reports as 0 rather than aborting the request.
func safeDiv(tr *tracer, numName, denName string, num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return tr.record("DIV_BY_ZERO", []string{numName, denName}, decimal.Zero)
	}
	return tr.record("DIV", []string{numName, denName}, num.Div(den))
}

// ratioOf builds a plain a/b formula.
func ratioOf(numName, denName string) computeFn {
	return func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
		return safeDiv(tr, numName, denName, in[numName], in[denName])
	}
}

// marginOf builds an a/b*100 percentage formula.
func marginOf(numName, denName string) computeFn {
	return func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
		ratio := safeDiv(tr, numName, denName, in[numName], in[denName])
		return tr.record("MUL", []string{prevRef, "100"}, ratio.Mul(hundred))
	}
}

// growthOf builds a (current-prior)/prior*100 formula.
func growthOf(curName, priorName string) computeFn {
	return func(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
		delta := tr.record("SUB", []string{curName, priorName}, in[curName].Sub(in[priorName]))
		ratio := safeDiv(tr, prevRef, priorName, delta, in[priorName])
		return tr.record("MUL", []string{prevRef, "100"}, ratio.Mul(hundred))
	}
}

// computeCAGR evaluates ((end/start)^(1/years) - 1) * 100. The fractional
// root is the one operation that leaves decimal space; degenerate inputs
// report as 0, matching the growth conventions above.
func computeCAGR(in map[string]decimal.Decimal, tr *tracer) decimal.Decimal {
	start, end, years := in["VALUE_START"], in["VALUE_END"], in["YEARS"]
	if start.Sign() <= 0 || end.Sign() <= 0 || years.Sign() <= 0 {
		return tr.record("CAGR_UNDEFINED", []string{"VALUE_START", "VALUE_END", "YEARS"}, decimal.Zero)
	}
	ratio := tr.record("DIV", []string{"VALUE_END", "VALUE_START"}, end.Div(start))
	root := nthRoot(ratio, years)
	rooted := tr.record("POW", []string{prevRef, "1/YEARS"}, root)
	grown := tr.record("SUB", []string{prevRef, "1"}, rooted.Sub(decimal.NewFromInt(1)))
	return tr.record("MUL", []string{prevRef, "100"}, grown.Mul(hundred))
}

func nthRoot(ratio, years decimal.Decimal) decimal.Decimal {
	r, _ := ratio.Float64()
	y, _ := years.Float64()
	return decimal.NewFromFloat(math.Pow(r, 1/y))
}
