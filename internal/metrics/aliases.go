package metrics

import (
	"regexp"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// Alias Resolver
// ════════════════════════════════════════════════════════════════════

// aliasTable maps normalized metric phrases to canonical metric ids. The
// table is fixed at init and read-only afterwards.
var aliasTable = map[string]string{
	"ebitda":                       "EBITDA",
	"adjusted ebitda":              "EBITDA",
	"ebit":                         "EBIT",
	"operating income":             "EBIT",
	"operating margin":             "OPERATING_MARGIN",
	"operating profit margin":      "OPERATING_MARGIN",
	"gross margin":                 "GROSS_MARGIN",
	"gross profit margin":          "GROSS_MARGIN",
	"net margin":                   "NET_MARGIN",
	"net profit margin":            "NET_MARGIN",
	"profit margin":                "NET_MARGIN",
	"gross profit":                 "GROSS_PROFIT",
	"revenue growth":               "REVENUE_GROWTH",
	"sales growth":                 "REVENUE_GROWTH",
	"yoy growth":                   "YOY_GROWTH",
	"year over year growth":        "YOY_GROWTH",
	"year-over-year growth":        "YOY_GROWTH",
	"growth rate":                  "YOY_GROWTH",
	"cagr":                         "CAGR",
	"compound annual growth rate":  "CAGR",
	"current ratio":                "CURRENT_RATIO",
	"quick ratio":                  "QUICK_RATIO",
	"acid test ratio":              "QUICK_RATIO",
	"working capital":              "WORKING_CAPITAL",
	"debt to equity":               "DEBT_TO_EQUITY",
	"debt-to-equity":               "DEBT_TO_EQUITY",
	"debt to equity ratio":         "DEBT_TO_EQUITY",
	"debt ratio":                   "DEBT_RATIO",
	"roe":                          "ROE",
	"return on equity":             "ROE",
	"roa":                          "ROA",
	"return on assets":             "ROA",
	"roic":                         "ROIC",
	"return on invested capital":   "ROIC",
	"free cash flow":               "FREE_CASH_FLOW",
	"fcf":                          "FREE_CASH_FLOW",
	"fcf conversion":               "FCF_CONVERSION",
	"free cash flow conversion":    "FCF_CONVERSION",
	"percentage of":                "PERCENTAGE_OF",
	"percent of":                   "PERCENTAGE_OF",
}

// fillerPhrases are stripped from a metric phrase before lookup, longest
// first so overlapping phrases ("for the year ending" vs "for the year")
// remove cleanly.
var fillerPhrases = []string{
	"what is the",
	"what was the",
	"what is",
	"what was",
	"what's",
	"calculate the",
	"calculate",
	"compute the",
	"compute",
	"in the year ending",
	"for the year ending",
	"for the year",
	"year ending",
	"for fiscal year",
	"in fiscal year",
	"the ",
}

// percentOfPattern matches "<number>% of <number>" phrases, spelled with the
// symbol or the word, which always resolve to PERCENTAGE_OF regardless of
// other alias matches.
var percentOfPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent)\s*of\s*\$?([\d,]+(?:\.\d+)?)`)

// Resolve maps a natural-language metric phrase to a MetricSpec. Resolution
// never fails: phrases with no alias match synthesize a fallback metric id
// (upper-snake-cased phrase, no required inputs) so the "unsupported metric"
// decision is deferred to the compute engine.
func Resolve(metricPhrase string) MetricSpec {
	norm := normalizePhrase(metricPhrase)

	if percentOfPattern.MatchString(norm) {
		spec, _ := Spec("PERCENTAGE_OF")
		return spec
	}

	// Exact match first.
	if id, ok := aliasTable[norm]; ok {
		spec, _ := Spec(id)
		return spec
	}

	// Longest alias key contained in the phrase wins, so "gross profit
	// margin" is not shadowed by "gross profit".
	best := ""
	for key := range aliasTable {
		if strings.Contains(norm, key) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		spec, _ := Spec(aliasTable[best])
		return spec
	}

	// Fallback: treat the phrase itself as a metric id. The compute engine
	// rejects it with UnsupportedMetric if nothing is registered.
	id := strings.ToUpper(strings.ReplaceAll(norm, " ", "_"))
	return MetricSpec{MetricID: id}
}

// PercentOfArgs extracts the two operands of a "<p>% of <w>" phrase.
func PercentOfArgs(phrase string) (pct, whole string, ok bool) {
	m := percentOfPattern.FindStringSubmatch(strings.ToLower(phrase))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.ReplaceAll(m[2], ",", ""), true
}

func normalizePhrase(phrase string) string {
	norm := strings.ToLower(strings.TrimSpace(phrase))
	norm = strings.ReplaceAll(norm, "?", "")
	for _, filler := range fillerPhrases {
		norm = strings.ReplaceAll(norm, filler, " ")
	}
	return strings.Join(strings.Fields(norm), " ")
}
