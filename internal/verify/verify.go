// Package verify is the sanity gate between computation and answer
// formatting. It flags implausible values; it never rejects them — the
// caller decides whether to surface a warning.
package verify

import "github.com/shopspring/decimal"

// DefaultTolerance is the comparison tolerance handed to downstream
// consumers that cross-check computed values against reported figures.
const DefaultTolerance = "0.01"

// Check is the verifier's verdict on a computed value.
type Check struct {
	OK        bool   `json:"ok"`
	Tolerance string `json:"tolerance"`
}

// Consistency confirms the computed decimal string parses and is finite.
// Inputs are accepted for future cross-checks but not inspected today.
func Consistency(metricID, computed string, inputs map[string]string) Check {
	_, err := decimal.NewFromString(computed)
	return Check{OK: err == nil, Tolerance: DefaultTolerance}
}
