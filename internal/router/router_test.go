package router

import (
	"testing"

	"github.com/seenimoa/filingiq/pkg/models"
)

func TestClassify_AssumptionHintsWinOutright(t *testing.T) {
	tests := []string{
		"Calculate EBITDA excluding stock-based compensation",
		"What is net income adjusted for one-time charges?",
		"Add back the ASC 842 lease expense",
		"What is the non-GAAP operating margin?",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			assertEqual(t, RouteAssumptionCalc, Classify(q, nil))
		})
	}
}

func TestClassify_Calc(t *testing.T) {
	tests := []string{
		"Calculate the EBITDA",
		"What is 15% of 100?",
		"Compute the compound annual growth rate",
		"100 + 200",
		"100 - 50",
		"What is the quick ratio?",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			assertEqual(t, RouteCalc, Classify(q, nil))
		})
	}
}

func TestClassify_Structured(t *testing.T) {
	tests := []string{
		"What was the revenue in 2023?",
		"Total assets as reported",
		"How much cash and debt does the company carry?",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			assertEqual(t, RouteStructured, Classify(q, nil))
		})
	}
}

func TestClassify_Narrative(t *testing.T) {
	tests := []string{
		"Describe the company's business strategy",
		"Why does management plan to expand?",
		"Discuss the competitive outlook",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			assertEqual(t, RouteNarrative, Classify(q, nil))
		})
	}
}

// Ties between calc and structured resolve to calc.
func TestClassify_TieBreaksToCalc(t *testing.T) {
	assertEqual(t, RouteCalc, Classify("Calculate total revenue growth", nil))
}

// A hyphen inside a word is not subtraction; only a spaced minus counts.
func TestClassify_HyphenatedTermsAreNotMath(t *testing.T) {
	assertEqual(t, RouteStructured, Classify("debt levels in the 10-K", nil))
}

// A 4-digit year boosts the structured score.
func TestClassify_YearBoostsStructured(t *testing.T) {
	assertEqual(t, RouteStructured, Classify("revenue 2023", nil))
}

func TestClassify_FallsBackToRouteHint(t *testing.T) {
	q := "tell me more"
	assertEqual(t, RouteNarrative, Classify(q, &models.QuestionContext{RouteHint: "narrative"}))
	assertEqual(t, RouteCalc, Classify(q, &models.QuestionContext{RouteHint: "calc"}))
	assertEqual(t, RouteStructured, Classify(q, &models.QuestionContext{RouteHint: "structured"}))
}

func TestClassify_DefaultIsStructured(t *testing.T) {
	assertEqual(t, RouteStructured, Classify("tell me more", nil))
	assertEqual(t, RouteStructured, Classify("", nil))
	assertEqual(t, RouteStructured, Classify("tell me more", &models.QuestionContext{RouteHint: "bogus"}))
}

func assertEqual[T comparable](t *testing.T, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}
