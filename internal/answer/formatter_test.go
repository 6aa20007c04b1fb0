package answer

import (
	"testing"

	"github.com/seenimoa/filingiq/pkg/models"
)

func TestEnsureSchema_FillsDefaults(t *testing.T) {
	out := EnsureSchema(models.AnswerEnvelope{})

	assertEqual(t, models.AnswerText, out.FinalAnswer.Type)
	if out.Trace == nil {
		t.Error("trace should be non-nil")
	}
	if out.Assumptions == nil {
		t.Error("assumptions should be non-nil")
	}
	if out.Sources == nil {
		t.Error("sources should be non-nil")
	}
}

func TestEnsureSchema_PreservesFields(t *testing.T) {
	in := models.AnswerEnvelope{
		ID: "q-1",
		FinalAnswer: models.FinalAnswer{
			Type:  models.AnswerPercent,
			Value: "15.00",
			Unit:  "percent",
		},
		Trace:       []models.TraceEntry{models.NoteEntry("looked up")},
		Assumptions: []string{"Applied rule EXCLUDE_SBC: added stock-based compensation back to EBITDA"},
		Sources:     []string{"https://example.com/10-K"},
	}
	out := EnsureSchema(in)

	assertEqual(t, "q-1", out.ID)
	assertEqual(t, models.AnswerPercent, out.FinalAnswer.Type)
	assertEqual(t, "15.00", out.FinalAnswer.Value)
	assertEqual(t, 1, len(out.Trace))
	assertEqual(t, 1, len(out.Assumptions))
	assertEqual(t, 1, len(out.Sources))
}

func TestTextual(t *testing.T) {
	out := Textual("q-2", "Metric not supported by engine.", "unsupported metric_id: FOO")

	assertEqual(t, "q-2", out.ID)
	assertEqual(t, models.AnswerText, out.FinalAnswer.Type)
	assertEqual(t, "Metric not supported by engine.", out.FinalAnswer.Value)
	assertEqual(t, 1, len(out.Trace))
	assertEqual(t, "unsupported metric_id: FOO", out.Trace[0].Note)
	if out.Assumptions == nil || out.Sources == nil {
		t.Error("textual envelopes must still be schema-complete")
	}
}

func TestTextual_NoTrace(t *testing.T) {
	out := Textual("q-3", "No data found for the specified query.")
	assertEqual(t, 0, len(out.Trace))
	if out.Trace == nil {
		t.Error("trace should be empty, not nil")
	}
}

func assertEqual[T comparable](t *testing.T, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}
