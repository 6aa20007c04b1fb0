// Package assumptions applies named adjustment rules to computed base
// values — the add-backs and exclusions analysts layer on top of reported
// figures (lease accounting, stock-based compensation, one-offs). Rules are
// pure functions over the value map; they apply sequentially and compound,
// so the order of assumption ids is significant.
package assumptions

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rule ids recognized by the adjuster.
const (
	ASC842AddBack        = "ASC842_ADD_BACK"
	ExcludeSBC           = "EXCLUDE_SBC"
	ExcludeRestructuring = "EXCLUDE_RESTRUCTURING"
)

// ruleFn takes the current adjusted-value map and returns a partial map of
// overrides plus a rationale for the adjustment.
type ruleFn func(values map[string]decimal.Decimal) (map[string]decimal.Decimal, string)

// rules is the fixed adjustment registry, read-only after init.
var rules = map[string]ruleFn{
	ASC842AddBack:        addBack("EBITDA", "OPERATING_LEASE_EXP", "added operating lease expense back to EBITDA (ASC 842)"),
	ExcludeSBC:           addBack("EBITDA", "SBC", "added stock-based compensation back to EBITDA"),
	ExcludeRestructuring: addBack("EBITDA", "RESTRUCTURING", "added restructuring charges back to EBITDA"),
}

// addBack builds a rule that adds an excluded line item back into a target
// value. Missing operands are treated as zero so a rule can run against a
// sparse value map.
func addBack(target, item, rationale string) ruleFn {
	return func(values map[string]decimal.Decimal) (map[string]decimal.Decimal, string) {
		base := values[target]
		delta := values[item]
		return map[string]decimal.Decimal{target: base.Add(delta)}, rationale
	}
}

// Known reports whether an assumption id has a registered rule.
func Known(id string) bool {
	_, ok := rules[id]
	return ok
}

// Apply runs the named rules, in order, over the base values. Each rule
// sees the output of the previous one. Unknown assumption ids are skipped —
// an unrecognized adjustment must not break an otherwise-valid computation.
// Every applied rule contributes one rationale string.
func Apply(assumptionIDs []string, baseValues map[string]string) (adjusted map[string]string, rationales []string, err error) {
	current := make(map[string]decimal.Decimal, len(baseValues))
	for name, raw := range baseValues {
		d, derr := decimal.NewFromString(raw)
		if derr != nil {
			return nil, nil, fmt.Errorf("base value %s is not a decimal (%q): %w", name, raw, derr)
		}
		current[name] = d
	}

	for _, id := range assumptionIDs {
		rule, ok := rules[id]
		if !ok {
			continue
		}
		overrides, rationale := rule(current)
		for name, v := range overrides {
			current[name] = v
		}
		rationales = append(rationales, fmt.Sprintf("Applied rule %s: %s", id, rationale))
	}

	adjusted = make(map[string]string, len(current))
	for name, v := range current {
		adjusted[name] = v.String()
	}
	return adjusted, rationales, nil
}
