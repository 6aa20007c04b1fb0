package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/seenimoa/filingiq/internal/llm"
	"github.com/seenimoa/filingiq/internal/narrative"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/pkg/models"
)

func testStore(t *testing.T, records ...store.Record) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if len(records) > 0 {
		if err := s.PutBatch(context.Background(), records); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return s
}

// Every envelope must be schema-complete whatever path produced it.
func assertSchemaComplete(t *testing.T, env models.AnswerEnvelope) {
	t.Helper()
	if env.ID == "" {
		t.Error("envelope id should never be empty")
	}
	if env.FinalAnswer.Type == "" {
		t.Error("final answer type should never be empty")
	}
	if env.Trace == nil || env.Assumptions == nil || env.Sources == nil {
		t.Error("trace, assumptions, and sources must be non-nil")
	}
}

// ════════════════════════════════════════════════════════════════════
// Calc Route Tests
// ════════════════════════════════════════════════════════════════════

func TestAnswer_PercentOf(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{Question: "What is 15% of 100?"})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerPercent, env.FinalAnswer.Type)
	assertEqual(t, "15.00", env.FinalAnswer.Value)
	assertEqual(t, "percent", env.FinalAnswer.Unit)
	if len(env.Trace) == 0 {
		t.Error("expected computation trace steps")
	}
}

// The spelled-out form answers the same as the symbol form.
func TestAnswer_PercentOfSpelledOut(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{Question: "What is 15 percent of 100?"})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerPercent, env.FinalAnswer.Type)
	assertEqual(t, "15.00", env.FinalAnswer.Value)
	for _, step := range env.Trace {
		if step.Step != nil && step.Step.Op == "DIV_BY_ZERO" {
			t.Errorf("unexpected trace step %+v", step)
		}
	}
}

func TestAnswer_MarginFromContextInputs(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{
		ID:       "q-margin",
		Question: "What is the gross margin?",
		Context: &models.QuestionContext{
			Inputs: map[string]string{"GROSS_PROFIT": "250", "REVENUE": "1000"},
		},
	})

	assertSchemaComplete(t, env)
	assertEqual(t, "q-margin", env.ID)
	assertEqual(t, models.AnswerPercent, env.FinalAnswer.Type)
	assertEqual(t, "25.00", env.FinalAnswer.Value)
}

// Context units normalize to raw USD before computing.
func TestAnswer_UnitNormalization(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{
		Question: "Calculate the working capital",
		Context: &models.QuestionContext{
			Inputs: map[string]string{"CURRENT_ASSETS": "1.5", "CURRENT_LIABILITIES": "0.5"},
			Units:  map[string]string{"CURRENT_ASSETS": "millions", "CURRENT_LIABILITIES": "millions"},
		},
	})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerNumber, env.FinalAnswer.Type)
	assertEqual(t, "1000000.00", env.FinalAnswer.Value)
	assertEqual(t, "USD", env.FinalAnswer.Unit)
}

// Formula inputs come from the store when the context has none.
func TestAnswer_InputsFromStore(t *testing.T) {
	s := testStore(t,
		store.Record{Metric: "GROSS_PROFIT", PeriodEnd: "2023-12-31", Value: "250"},
		store.Record{Metric: "REVENUE", PeriodEnd: "2023-12-31", Value: "1000"},
	)
	p := New(WithStore(s))
	env := p.Answer(context.Background(), models.Question{
		Question: "What is the gross margin?",
		Context: &models.QuestionContext{
			Period: &models.Period{Kind: models.PeriodFY, End: "2023"},
		},
	})

	assertSchemaComplete(t, env)
	assertEqual(t, "25.00", env.FinalAnswer.Value)
}

// Missing inputs default to zero; undefined ratios report as zero.
func TestAnswer_SparseInputs(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{Question: "What is the current ratio?"})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerRatio, env.FinalAnswer.Type)
	assertEqual(t, "0.00", env.FinalAnswer.Value)
	assertEqual(t, "", env.FinalAnswer.Unit)
}

func TestAnswer_UnsupportedMetric(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{
		Question: "Calculate the days sales outstanding",
	})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerText, env.FinalAnswer.Type)
	assertEqual(t, "Metric not supported by engine.", env.FinalAnswer.Value)
	if len(env.Trace) != 1 || env.Trace[0].Note == "" {
		t.Errorf("expected one explanatory trace note, got %v", env.Trace)
	}
}

// ════════════════════════════════════════════════════════════════════
// Assumption Tests
// ════════════════════════════════════════════════════════════════════

func TestAnswer_AssumptionAdjustment(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{
		Question: "Calculate EBITDA excluding stock-based compensation",
		Context: &models.QuestionContext{
			Inputs: map[string]string{
				"OPERATING_INCOME": "100",
				"DEPRECIATION":     "20",
				"AMORTIZATION":     "10",
				"SBC":              "5",
			},
			Assumptions: []string{"EXCLUDE_SBC"},
		},
	})

	assertSchemaComplete(t, env)
	assertEqual(t, "135.00", env.FinalAnswer.Value)
	assertEqual(t, 1, len(env.Assumptions))
	if !strings.Contains(env.Assumptions[0], "EXCLUDE_SBC") {
		t.Errorf("rationale should name the rule, got %q", env.Assumptions[0])
	}

	last := env.Trace[len(env.Trace)-1]
	if last.Step == nil || last.Step.Op != "ASSUMPTIONS" {
		t.Errorf("expected a final ASSUMPTIONS trace step, got %+v", last)
	}
	assertEqual(t, "135.00", last.Step.Result)
}

func TestAnswer_UnknownAssumptionKeepsBaseValue(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{
		Question: "Calculate EBITDA excluding moon phases",
		Context: &models.QuestionContext{
			Inputs: map[string]string{
				"OPERATING_INCOME": "100",
				"DEPRECIATION":     "20",
				"AMORTIZATION":     "10",
			},
			Assumptions: []string{"MOON_PHASE"},
		},
	})

	assertSchemaComplete(t, env)
	assertEqual(t, "130.00", env.FinalAnswer.Value)
	assertEqual(t, 0, len(env.Assumptions))
}

// ════════════════════════════════════════════════════════════════════
// Structured Route Tests
// ════════════════════════════════════════════════════════════════════

func TestAnswer_StructuredLookup(t *testing.T) {
	s := testStore(t,
		store.Record{Metric: "REVENUE", PeriodEnd: "2024-12-31", Value: "1200000", Unit: "USD"},
	)
	p := New(WithStore(s))
	env := p.Answer(context.Background(), models.Question{
		Question: "What was the revenue in 2024?",
		Context:  &models.QuestionContext{FilingLink: "https://example.com/10-K"},
	})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerNumber, env.FinalAnswer.Type)
	assertEqual(t, "1200000", env.FinalAnswer.Value)
	assertEqual(t, "USD", env.FinalAnswer.Unit)
	assertEqual(t, 1, len(env.Sources))
	if len(env.Trace) != 1 || !strings.Contains(env.Trace[0].Note, "structured lookup") {
		t.Errorf("expected a lookup trace note, got %v", env.Trace)
	}
}

func TestAnswer_StructuredNoStore(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{Question: "What was the revenue in 2024?"})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerText, env.FinalAnswer.Type)
	assertEqual(t, "No structured data available.", env.FinalAnswer.Value)
}

func TestAnswer_StructuredNoMatch(t *testing.T) {
	s := testStore(t)
	p := New(WithStore(s))
	env := p.Answer(context.Background(), models.Question{Question: "What was the revenue in 2024?"})

	assertSchemaComplete(t, env)
	assertEqual(t, "No data found for the specified query.", env.FinalAnswer.Value)
}

// ════════════════════════════════════════════════════════════════════
// Narrative Route Tests
// ════════════════════════════════════════════════════════════════════

func TestAnswer_Narrative(t *testing.T) {
	p := New(
		WithProvider(llm.NoopProvider{}),
		WithSections([]narrative.Section{
			{Heading: "Risk Factors", Text: "Supply chain disruption is our principal risk.", Source: "10-K Item 1A"},
		}),
	)
	env := p.Answer(context.Background(), models.Question{
		Question: "Describe the principal risk factors",
	})

	assertSchemaComplete(t, env)
	assertEqual(t, models.AnswerText, env.FinalAnswer.Type)
	if !strings.Contains(env.FinalAnswer.Value, "Supply chain disruption") {
		t.Errorf("expected extractive answer, got %q", env.FinalAnswer.Value)
	}
	assertEqual(t, 1, len(env.Sources))
}

func TestAnswer_NarrativeNoSections(t *testing.T) {
	p := New()
	env := p.Answer(context.Background(), models.Question{Question: "Describe the business strategy"})

	assertSchemaComplete(t, env)
	assertEqual(t, "No relevant filing text found for this question.", env.FinalAnswer.Value)
}

// ════════════════════════════════════════════════════════════════════
// Batch Tests
// ════════════════════════════════════════════════════════════════════

func TestAnswerBatch_PreservesOrder(t *testing.T) {
	p := New()
	questions := []models.Question{
		{ID: "a", Question: "What is 10% of 200?"},
		{ID: "b", Question: "What is 50% of 80?"},
		{ID: "c", Question: "Calculate the days sales outstanding"},
	}
	results, err := p.AnswerBatch(context.Background(), questions, 2)
	assertNoErr(t, err)

	assertEqual(t, 3, len(results))
	assertEqual(t, "a", results[0].ID)
	assertEqual(t, "10.00", results[0].FinalAnswer.Value)
	assertEqual(t, "b", results[1].ID)
	assertEqual(t, "50.00", results[1].FinalAnswer.Value)
	assertEqual(t, "c", results[2].ID)
	assertEqual(t, models.AnswerText, results[2].FinalAnswer.Type)
	for _, env := range results {
		assertSchemaComplete(t, env)
	}
}

func TestAnswerBatch_Cancelled(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.AnswerBatch(ctx, []models.Question{{Question: "What is 1% of 1?"}}, 1)
	if err == nil {
		t.Fatal("expected a context error")
	}
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func assertEqual[T comparable](t *testing.T, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func assertNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
