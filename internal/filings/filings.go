// Package filings turns company filings into pipeline inputs: it parses
// filing HTML into text sections and financial-statement records, lists new
// filings from the EDGAR Atom feeds, and caches parsed filings as JSON so
// repeated questions never re-fetch or re-parse.
package filings

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/seenimoa/filingiq/internal/narrative"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/pkg/models"
)

// Filing is a parsed filing: the narrative sections and the financial line
// items extracted from its statement tables.
type Filing struct {
	Company  string              `json:"company"`
	Link     string              `json:"link,omitempty"`
	Sections []narrative.Section `json:"sections"`
	Records  []store.Record      `json:"records"`
	ParsedAt time.Time           `json:"parsed_at"`
}

// ════════════════════════════════════════════════════════════════════
// JSON cache
// ════════════════════════════════════════════════════════════════════

// SaveCached writes a parsed filing to path as indented JSON, creating
// parent directories as needed.
func SaveCached(path string, f *Filing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("filings: mkdir cache dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("filings: marshal filing: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("filings: write cache %s: %w", path, err)
	}
	return nil
}

// LoadCached reads a previously saved filing. A missing file is reported
// via os.ErrNotExist so callers can distinguish cold cache from corruption.
func LoadCached(path string) (*Filing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filings: read cache %s: %w", path, err)
	}
	var f Filing
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("filings: decode cache %s: %w", path, err)
	}
	return &f, nil
}

// ════════════════════════════════════════════════════════════════════
// CSV ingest
// ════════════════════════════════════════════════════════════════════

// LoadRecordsCSV reads financial line items from a CSV file with columns
// company,metric,period_kind,period_end,value,unit (header row required).
// Trailing optional columns may be omitted per row.
func LoadRecordsCSV(r io.Reader) ([]store.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows allowed

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("filings: read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("filings: csv has no data rows")
	}

	records := make([]store.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("filings: csv row %d: want at least 5 columns, got %d", i+2, len(row))
		}
		rec := store.Record{
			Company:    row[0],
			Metric:     row[1],
			PeriodKind: models.PeriodKind(row[2]),
			PeriodEnd:  row[3],
			Value:      row[4],
		}
		if len(row) > 5 {
			rec.Unit = row[5]
		}
		records = append(records, rec)
	}
	return records, nil
}
