// Package answer enforces the output envelope schema. EnsureSchema is a
// total function: whatever partial envelope a pipeline path produces —
// success or failure — comes out as a structurally complete AnswerEnvelope.
package answer

import "github.com/seenimoa/filingiq/pkg/models"

// EnsureSchema fills every missing envelope field with its safe default:
// empty id, text answer type, empty (not nil) trace/assumptions/sources.
func EnsureSchema(candidate models.AnswerEnvelope) models.AnswerEnvelope {
	out := candidate

	if out.FinalAnswer.Type == "" {
		out.FinalAnswer.Type = models.AnswerText
	}
	if out.Trace == nil {
		out.Trace = []models.TraceEntry{}
	}
	if out.Assumptions == nil {
		out.Assumptions = []string{}
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return out
}

// Textual builds a text envelope, the shape every error path degrades to.
func Textual(id, text string, trace ...string) models.AnswerEnvelope {
	entries := make([]models.TraceEntry, 0, len(trace))
	for _, note := range trace {
		entries = append(entries, models.NoteEntry(note))
	}
	return EnsureSchema(models.AnswerEnvelope{
		ID:          id,
		FinalAnswer: models.FinalAnswer{Type: models.AnswerText, Value: text},
		Trace:       entries,
	})
}
