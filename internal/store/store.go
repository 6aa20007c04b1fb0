// Package store is the structured filing-value store: a SQLite database of
// reported financial line items keyed by company, metric, and period. It
// backs the pipeline's raw-value provider and the structured lookup route.
// The driver is modernc.org/sqlite (pure Go, no cgo).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/seenimoa/filingiq/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS financial_metrics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	company     TEXT NOT NULL DEFAULT '',
	metric      TEXT NOT NULL,
	period_kind TEXT NOT NULL DEFAULT 'FY',
	period_end  TEXT NOT NULL,
	value       TEXT NOT NULL,
	unit        TEXT NOT NULL DEFAULT 'USD',
	UNIQUE(company, metric, period_kind, period_end)
);
CREATE INDEX IF NOT EXISTS idx_metrics_lookup
	ON financial_metrics(metric, period_end);
`

// Record is one reported line item.
type Record struct {
	Company    string
	Metric     string
	PeriodKind models.PeriodKind
	PeriodEnd  string
	Value      string // decimal string
	Unit       string
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a record.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.PeriodKind == "" {
		r.PeriodKind = models.PeriodFY
	}
	if r.Unit == "" {
		r.Unit = "USD"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO financial_metrics
			(company, metric, period_kind, period_end, value, unit)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Company, normalizeMetric(r.Metric), string(r.PeriodKind), r.PeriodEnd, r.Value, r.Unit)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", r.Metric, err)
	}
	return nil
}

// PutBatch inserts records inside one transaction.
func (s *Store) PutBatch(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	for _, r := range records {
		if r.PeriodKind == "" {
			r.PeriodKind = models.PeriodFY
		}
		if r.Unit == "" {
			r.Unit = "USD"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO financial_metrics
				(company, metric, period_kind, period_end, value, unit)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.Company, normalizeMetric(r.Metric), string(r.PeriodKind), r.PeriodEnd, r.Value, r.Unit); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: put %s: %w", r.Metric, err)
		}
	}
	return tx.Commit()
}

// Lookup implements the raw-value provider contract: return the InputValue
// for a (name, period) pair. The period end matches by prefix so callers
// may pass either a full date or a bare fiscal year. An exact-period miss
// falls back to the most recent record for the metric.
func (s *Store) Lookup(ctx context.Context, name string, period models.Period) (models.InputValue, bool, error) {
	rec, ok, err := s.lookupRow(ctx, normalizeMetric(name), period)
	if err != nil || !ok {
		return models.InputValue{}, false, err
	}
	return models.InputValue{Name: name, RawValue: rec.Value, Unit: rec.Unit}, true, nil
}

// lookupRow is the shared query behind Lookup and FindByQuestion. The
// returned record carries the matched row's stored period, which may differ
// from the requested one when the exact-period query misses and the
// most-recent fallback answers instead.
func (s *Store) lookupRow(ctx context.Context, metric string, period models.Period) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT company, period_kind, period_end, value, unit FROM financial_metrics
		WHERE metric = ? AND period_kind = ? AND period_end LIKE ? || '%'
		ORDER BY period_end DESC LIMIT 1`,
		metric, string(period.Kind), period.End)

	rec := Record{Metric: metric}
	var kind string
	err := row.Scan(&rec.Company, &kind, &rec.PeriodEnd, &rec.Value, &rec.Unit)
	if errors.Is(err, sql.ErrNoRows) {
		row = s.db.QueryRowContext(ctx, `
			SELECT company, period_kind, period_end, value, unit FROM financial_metrics
			WHERE metric = ?
			ORDER BY period_end DESC LIMIT 1`, metric)
		err = row.Scan(&rec.Company, &kind, &rec.PeriodEnd, &rec.Value, &rec.Unit)
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("store: lookup %s: %w", metric, err)
	}
	rec.PeriodKind = models.PeriodKind(kind)
	return rec, true, nil
}

// ════════════════════════════════════════════════════════════════════
// Question-driven lookup (structured route)
// ════════════════════════════════════════════════════════════════════

// metricSynonyms maps phrases seen in questions to stored metric names.
// Longest phrase wins, mirroring the alias resolver's disambiguation.
var metricSynonyms = map[string]string{
	"total revenue":              "REVENUE",
	"net sales":                  "REVENUE",
	"revenue":                    "REVENUE",
	"sales":                      "REVENUE",
	"gross profit":               "GROSS_PROFIT",
	"net income":                 "NET_INCOME",
	"net earnings":               "NET_INCOME",
	"operating income":           "OPERATING_INCOME",
	"operating profit":           "OPERATING_INCOME",
	"earnings per share":         "EPS",
	"eps":                        "EPS",
	"total assets":               "TOTAL_ASSETS",
	"total liabilities":          "TOTAL_LIABILITIES",
	"stockholders equity":        "TOTAL_EQUITY",
	"shareholders equity":        "TOTAL_EQUITY",
	"total equity":               "TOTAL_EQUITY",
	"cash and cash equivalents":  "CASH",
	"cash":                       "CASH",
	"merchandise inventories":    "INVENTORY",
	"inventory":                  "INVENTORY",
	"cost of goods sold":         "COGS",
	"cost of sales":              "COGS",
	"cogs":                       "COGS",
	"operating expenses":         "OPERATING_EXPENSES",
	"depreciation":               "DEPRECIATION",
	"amortization":               "AMORTIZATION",
	"current assets":             "CURRENT_ASSETS",
	"current liabilities":        "CURRENT_LIABILITIES",
	"long term debt":             "TOTAL_DEBT",
	"long-term debt":             "TOTAL_DEBT",
	"total debt":                 "TOTAL_DEBT",
	"retained earnings":          "RETAINED_EARNINGS",
	"operating cash flow":        "OPERATING_CASH_FLOW",
	"capital expenditures":       "CAPEX",
	"capex":                      "CAPEX",
	"stock-based compensation":   "SBC",
	"stock based compensation":   "SBC",
	"operating lease expense":    "OPERATING_LEASE_EXP",
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// FindByQuestion resolves a structured question ("What was total revenue in
// 2024?") to a stored record: longest matching metric synonym plus an
// optional year constraint.
func (s *Store) FindByQuestion(ctx context.Context, question string) (Record, bool, error) {
	q := strings.ToLower(question)

	best := ""
	for phrase := range metricSynonyms {
		if strings.Contains(q, phrase) && len(phrase) > len(best) {
			best = phrase
		}
	}
	if best == "" {
		return Record{}, false, nil
	}
	metric := metricSynonyms[best]

	period := models.Period{Kind: models.PeriodFY}
	if m := yearPattern.FindStringSubmatch(question); m != nil {
		period.End = m[1]
	}

	return s.lookupRow(ctx, metric, period)
}

func normalizeMetric(name string) string {
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(name, " ", "_")))
}
