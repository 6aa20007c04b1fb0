package filings

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/filingiq/internal/narrative"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/pkg/models"
)

// labelMetrics maps statement-table row labels to canonical metric names.
// Matching is first-substring-wins over the table order below, so the more
// specific labels come first.
var labelMetrics = []struct {
	label  string
	metric string
}{
	{"total revenue", "REVENUE"},
	{"net sales", "REVENUE"},
	{"net revenue", "REVENUE"},
	{"revenue", "REVENUE"},
	{"cost of goods sold", "COGS"},
	{"cost of sales", "COGS"},
	{"cost of revenue", "COGS"},
	{"gross profit", "GROSS_PROFIT"},
	{"operating income", "OPERATING_INCOME"},
	{"income from operations", "OPERATING_INCOME"},
	{"operating expenses", "OPERATING_EXPENSES"},
	{"net income", "NET_INCOME"},
	{"net earnings", "NET_INCOME"},
	{"depreciation and amortization", "DEPRECIATION_AND_AMORTIZATION"},
	{"depreciation", "DEPRECIATION"},
	{"amortization", "AMORTIZATION"},
	{"total current assets", "CURRENT_ASSETS"},
	{"total current liabilities", "CURRENT_LIABILITIES"},
	{"total assets", "TOTAL_ASSETS"},
	{"total liabilities", "TOTAL_LIABILITIES"},
	{"total stockholders equity", "TOTAL_EQUITY"},
	{"total shareholders equity", "TOTAL_EQUITY"},
	{"total equity", "TOTAL_EQUITY"},
	{"cash and cash equivalents", "CASH"},
	{"merchandise inventories", "INVENTORY"},
	{"inventories", "INVENTORY"},
	{"long-term debt", "TOTAL_DEBT"},
	{"capital expenditures", "CAPEX"},
	{"stock-based compensation", "SBC"},
	{"operating lease", "OPERATING_LEASE_EXP"},
	{"restructuring", "RESTRUCTURING"},
	{"interest expense", "INTEREST_EXPENSE"},
	{"income tax", "TAXES"},
}

// ParseHTML extracts sections and statement records from a filing document.
// Sections are heading-delimited text runs; records come from tables whose
// first column is a recognized line-item label and whose header row carries
// the period names.
func ParseHTML(r io.Reader, company string) (*Filing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("filings: parse HTML: %w", err)
	}

	f := &Filing{
		Company:  company,
		Sections: parseSections(doc),
		Records:  parseStatementTables(doc, company),
		ParsedAt: time.Now().UTC(),
	}
	return f, nil
}

// parseSections walks headings and collects the text between one heading and
// the next into a section.
func parseSections(doc *goquery.Document) []narrative.Section {
	var sections []narrative.Section

	doc.Find("h1, h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		heading := strings.TrimSpace(h.Text())
		if heading == "" {
			return
		}
		var body strings.Builder
		for sib := h.Next(); sib.Length() > 0; sib = sib.Next() {
			node := goquery.NodeName(sib)
			if node == "h1" || node == "h2" || node == "h3" || node == "h4" {
				break
			}
			if node == "table" {
				continue // tables feed the record parser, not narrative text
			}
			text := strings.TrimSpace(sib.Text())
			if text != "" {
				body.WriteString(text)
				body.WriteString("\n")
			}
		}
		text := strings.TrimSpace(body.String())
		if text != "" {
			sections = append(sections, narrative.Section{
				Heading: heading,
				Text:    text,
			})
		}
	})
	return sections
}

// parseStatementTables extracts line items from every table that looks like
// a financial statement.
func parseStatementTables(doc *goquery.Document, company string) []store.Record {
	var records []store.Record

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		// Header row: first cell is the label column, the rest are periods.
		var periods []string
		table.Find("thead th, tr:first-child th").Each(func(i int, th *goquery.Selection) {
			if i > 0 {
				periods = append(periods, strings.TrimSpace(th.Text()))
			}
		})
		if len(periods) == 0 {
			return
		}

		unit := tableUnit(table)

		table.Find("tbody tr, tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			label := strings.TrimSpace(cells.First().Text())
			metric := matchLabel(label)
			if metric == "" {
				return
			}
			cells.Each(func(i int, cell *goquery.Selection) {
				if i == 0 || i-1 >= len(periods) {
					return
				}
				value, ok := parseFilingNumber(strings.TrimSpace(cell.Text()))
				if !ok {
					return
				}
				records = append(records, store.Record{
					Company:    company,
					Metric:     metric,
					PeriodKind: models.PeriodFY,
					PeriodEnd:  periods[i-1],
					Value:      value,
					Unit:       unit,
				})
			})
		})
	})
	return records
}

// matchLabel resolves a row label to a canonical metric, first match wins.
func matchLabel(label string) string {
	l := strings.ToLower(strings.ReplaceAll(label, "'", ""))
	for _, lm := range labelMetrics {
		if strings.Contains(l, lm.label) {
			return lm.metric
		}
	}
	return ""
}

// tableUnit sniffs the scale note filings print above statement tables
// ("in millions", "in thousands").
func tableUnit(table *goquery.Selection) string {
	caption := strings.ToLower(table.Find("caption").Text())
	if caption == "" {
		caption = strings.ToLower(table.Prev().Text())
	}
	switch {
	case strings.Contains(caption, "in billions"):
		return "USD_BILLIONS"
	case strings.Contains(caption, "in millions"):
		return "USD_MILLIONS"
	case strings.Contains(caption, "in thousands"):
		return "USD_THOUSANDS"
	default:
		return "USD"
	}
}

// parseFilingNumber normalizes statement-cell text: thousands separators and
// currency signs are stripped, parenthesized values are negative, dashes and
// empty cells are skipped.
func parseFilingNumber(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" || s == "—" {
		return "", false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return "", false
		}
	}
	if neg {
		s = "-" + s
	}
	return s, true
}
