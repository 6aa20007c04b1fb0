// Package models defines the wire types shared across FilingIQ: questions
// coming in, answer envelopes going out, and the provenance types (periods,
// raw inputs, computation steps) that travel between pipeline stages.
package models

import (
	"encoding/json"
	"fmt"
)

// ════════════════════════════════════════════════════════════════════
// Periods
// ════════════════════════════════════════════════════════════════════

// PeriodKind enumerates the reporting period types found in filings.
type PeriodKind string

const (
	PeriodFY  PeriodKind = "FY"  // fiscal year
	PeriodQ   PeriodKind = "Q"   // fiscal quarter
	PeriodTTM PeriodKind = "TTM" // trailing twelve months
)

// Period identifies a reporting period. The calculation core passes it
// through untouched; it exists for provenance in traces and store lookups.
type Period struct {
	Kind PeriodKind `json:"kind"`
	End  string     `json:"end"` // ISO date, e.g. "2024-09-01"
}

// String renders a compact period label, e.g. "FY2024-09-01".
func (p Period) String() string {
	return string(p.Kind) + p.End
}

// ════════════════════════════════════════════════════════════════════
// Inputs
// ════════════════════════════════════════════════════════════════════

// InputValue is one required formula input as supplied by an external
// collaborator (question context or the structured store).
type InputValue struct {
	Name     string `json:"name"`
	RawValue string `json:"raw_value"` // decimal string
	Unit     string `json:"unit,omitempty"`
}

// ════════════════════════════════════════════════════════════════════
// Trace
// ════════════════════════════════════════════════════════════════════

// ComputationStep is a single atomic operation in a computation trace.
type ComputationStep struct {
	Op     string   `json:"op"`
	Args   []string `json:"args"`
	Result string   `json:"result"` // decimal string
}

// TraceEntry is either a ComputationStep or a free-form note. Exactly one
// of Step/Note is set. On the wire a step marshals as an object and a note
// as a bare string, matching the envelope contract.
type TraceEntry struct {
	Step *ComputationStep
	Note string
}

// StepEntry wraps a ComputationStep as a TraceEntry.
func StepEntry(step ComputationStep) TraceEntry {
	return TraceEntry{Step: &step}
}

// NoteEntry wraps a free-form string as a TraceEntry.
func NoteEntry(note string) TraceEntry {
	return TraceEntry{Note: note}
}

// MarshalJSON emits the step object or the note string.
func (e TraceEntry) MarshalJSON() ([]byte, error) {
	if e.Step != nil {
		return json.Marshal(e.Step)
	}
	return json.Marshal(e.Note)
}

// UnmarshalJSON accepts either an object (step) or a string (note).
func (e *TraceEntry) UnmarshalJSON(data []byte) error {
	var note string
	if err := json.Unmarshal(data, &note); err == nil {
		e.Step = nil
		e.Note = note
		return nil
	}
	var step ComputationStep
	if err := json.Unmarshal(data, &step); err != nil {
		return fmt.Errorf("trace entry is neither string nor step: %w", err)
	}
	e.Step = &step
	e.Note = ""
	return nil
}

// ════════════════════════════════════════════════════════════════════
// Answer Envelope
// ════════════════════════════════════════════════════════════════════

// AnswerType classifies the final answer payload.
type AnswerType string

const (
	AnswerNumber  AnswerType = "number"
	AnswerPercent AnswerType = "percent"
	AnswerRatio   AnswerType = "ratio"
	AnswerText    AnswerType = "text"
)

// FinalAnswer is the typed answer value inside an envelope.
type FinalAnswer struct {
	Type  AnswerType `json:"type"`
	Value string     `json:"value"`
	Unit  string     `json:"unit,omitempty"`
}

// AnswerEnvelope is the only object crossing the pipeline's output
// boundary. Every producer output — success or error — is coerced into
// this shape before being returned.
type AnswerEnvelope struct {
	ID          string       `json:"id"`
	FinalAnswer FinalAnswer  `json:"final_answer"`
	Trace       []TraceEntry `json:"trace"`
	Assumptions []string     `json:"assumptions"`
	Sources     []string     `json:"sources"`
}

// ════════════════════════════════════════════════════════════════════
// Questions
// ════════════════════════════════════════════════════════════════════

// QuestionContext carries caller-supplied values the pipeline may use:
// pre-extracted inputs, their units, assumption ids, and filing provenance.
type QuestionContext struct {
	Inputs      map[string]string `json:"inputs,omitempty"`
	Units       map[string]string `json:"units,omitempty"`
	Assumptions []string          `json:"assumptions,omitempty"`
	Period      *Period           `json:"period,omitempty"`
	FilingLink  string            `json:"filing_link,omitempty"`
	Company     string            `json:"company,omitempty"`
	TableHint   string            `json:"table_hint,omitempty"`
	RouteHint   string            `json:"route_hint,omitempty"` // "structured" or "narrative"
}

// Question is the pipeline's input envelope.
type Question struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Context  *QuestionContext `json:"context,omitempty"`
}
