// Package router classifies incoming questions into pipeline routes using
// pure lexical scoring over fixed keyword tables. Adding a category means
// extending data, not control flow.
package router

import (
	"regexp"
	"strings"

	"github.com/seenimoa/filingiq/pkg/models"
)

// Route tags.
type Route string

const (
	RouteAssumptionCalc Route = "assumption-calc"
	RouteCalc           Route = "calc"
	RouteStructured     Route = "structured"
	RouteNarrative      Route = "narrative"
)

// assumptionHints short-circuit routing: an assumption changes the
// computation itself, not just where inputs come from, so it outranks
// every keyword score.
var assumptionHints = []string{
	"exclude", "excluding", "include", "including",
	"adjust", "adjusted", "normalize", "normalized",
	"add back", "add-back", "one-off", "one-time", "extraordinary",
	"sbc", "stock-based", "asc 842", "gaap", "non-gaap",
}

// scoring tables: keyword hits accumulate per category.
var (
	calcKeywords = []string{
		"calculate", "compute", "what is", "what's",
		"growth rate", "percentage", "percent of",
		"margin", "ratio", "cagr", "compound",
		"increase", "decrease", "change",
		"times", "multiply", "divide",
		"average", "mean", "sum", "total of",
	}

	calcMetrics = []string{
		"ebitda", "ebit", "operating margin", "gross margin",
		"net margin", "profit margin", "roe", "roa", "roic",
		"debt ratio", "debt to equity", "current ratio", "quick ratio",
		"free cash flow", "fcf", "working capital",
	}

	structuredKeywords = []string{
		"revenue", "sales", "income", "profit", "earnings",
		"assets", "liabilities", "equity", "cash",
		"inventory", "expenses", "cost", "debt",
		"eps", "share", "dividend", "retained earnings",
	}

	narrativeKeywords = []string{
		"strategy", "risk", "business", "describe", "explain",
		"how does", "why", "what are the", "discuss", "overview",
		"operations", "management", "competition", "market",
		"segment", "product", "service", "customer",
		"plan", "outlook", "guidance", "challenge",
	}

	// Subtraction is matched with surrounding spaces so hyphenated terms
	// ("year-over-year", "debt-to-equity", "10-K") do not count as math.
	mathOperators = []string{"%", "+", "*", "/", "=", " - "}

	yearPattern = regexp.MustCompile(`\b20\d{2}\b`)
)

// Route classifies a question. Priority: assumption hints win outright;
// otherwise the highest lexical score wins with ties breaking
// calc > structured > narrative; all-zero scores fall back to the context
// route hint, then to structured (the most common question shape).
func Classify(question string, ctx *models.QuestionContext) Route {
	q := strings.ToLower(strings.TrimSpace(question))

	for _, hint := range assumptionHints {
		if strings.Contains(q, hint) {
			return RouteAssumptionCalc
		}
	}

	calcScore := countHits(q, calcKeywords)*2 + countHits(q, calcMetrics)
	structScore := countHits(q, structuredKeywords) * 2
	narrScore := countHits(q, narrativeKeywords) * 2

	for _, op := range mathOperators {
		if strings.Contains(q, op) {
			calcScore += 4
			break
		}
	}
	// A 4-digit year usually means "look up a reported figure".
	if yearPattern.MatchString(question) {
		structScore += 2
	}

	if calcScore > 0 && calcScore >= structScore && calcScore >= narrScore {
		return RouteCalc
	}
	if structScore > 0 && structScore >= narrScore {
		return RouteStructured
	}
	if narrScore > 0 {
		return RouteNarrative
	}

	if ctx != nil {
		switch ctx.RouteHint {
		case string(RouteStructured):
			return RouteStructured
		case string(RouteNarrative):
			return RouteNarrative
		case string(RouteCalc):
			return RouteCalc
		}
	}
	return RouteStructured
}

func countHits(q string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			n++
		}
	}
	return n
}
