// Package agent is the pipeline orchestrator: it routes each incoming
// question, gathers formula inputs (question context first, then the
// structured store), normalizes units, computes, applies assumptions,
// verifies, and formats. Every exit path, including every error branch,
// passes through the answer formatter so callers always receive a complete
// envelope.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/filingiq/internal/answer"
	"github.com/seenimoa/filingiq/internal/assumptions"
	"github.com/seenimoa/filingiq/internal/llm"
	"github.com/seenimoa/filingiq/internal/metrics"
	"github.com/seenimoa/filingiq/internal/narrative"
	"github.com/seenimoa/filingiq/internal/router"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/internal/units"
	"github.com/seenimoa/filingiq/internal/verify"
	"github.com/seenimoa/filingiq/pkg/models"
	"github.com/seenimoa/filingiq/pkg/utils"
)

// Pipeline wires the calculation core to its collaborators. All fields are
// optional: a zero Pipeline still answers pure-arithmetic questions.
type Pipeline struct {
	store    *store.Store
	provider llm.Provider
	sections []narrative.Section
	rounding metrics.Rounding
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore attaches the structured value store.
func WithStore(s *store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithProvider attaches an optional language model for narrative answers.
func WithProvider(provider llm.Provider) Option {
	return func(p *Pipeline) { p.provider = provider }
}

// WithSections supplies filing sections for the narrative route.
func WithSections(sections []narrative.Section) Option {
	return func(p *Pipeline) { p.sections = sections }
}

// WithRounding overrides the default rounding policy.
func WithRounding(r metrics.Rounding) Option {
	return func(p *Pipeline) { p.rounding = r }
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{rounding: metrics.DefaultRounding()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer processes one question. It never returns an error: failures
// degrade to a textual envelope, and every result is schema-complete.
func (p *Pipeline) Answer(ctx context.Context, q models.Question) models.AnswerEnvelope {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	route := router.Classify(q.Question, q.Context)
	log.Printf("agent: question %s routed to %s", q.ID, route)

	var env models.AnswerEnvelope
	switch route {
	case router.RouteCalc, router.RouteAssumptionCalc:
		env = p.answerCalc(ctx, q)
	case router.RouteStructured:
		env = p.answerStructured(ctx, q)
	default:
		env = p.answerNarrative(ctx, q)
	}
	return answer.EnsureSchema(env)
}

// ════════════════════════════════════════════════════════════════════
// Calc route
// ════════════════════════════════════════════════════════════════════

func (p *Pipeline) answerCalc(ctx context.Context, q models.Question) models.AnswerEnvelope {
	spec := metrics.Resolve(q.Question)
	if !metrics.Supported(spec.MetricID) {
		return answer.Textual(q.ID, "Metric not supported by engine.",
			"unsupported metric_id: "+spec.MetricID)
	}

	qc := q.Context
	if qc == nil {
		qc = &models.QuestionContext{}
	}

	period := models.Period{Kind: models.PeriodFY, End: "1900-01-01"}
	if qc.Period != nil {
		period = *qc.Period
	}

	var sources []string
	if qc.FilingLink != "" {
		sources = append(sources, qc.FilingLink)
	}

	inputs, err := p.gatherInputs(ctx, spec, q.Question, qc, period)
	if err != nil {
		return answer.Textual(q.ID, "Could not assemble formula inputs.", err.Error())
	}

	result, err := metrics.Compute(spec.MetricID, period, inputs, p.rounding)
	if err != nil {
		return answer.Textual(q.ID, "Computation failed.", err.Error())
	}

	finalValue := result.Value
	var rationales []string
	if len(qc.Assumptions) > 0 {
		base := map[string]string{spec.MetricID: result.Value}
		for name, v := range inputs {
			base[name] = v
		}
		// Context values beyond the formula's inputs (lease expense, SBC)
		// are still adjustment operands.
		for name, v := range qc.Inputs {
			if _, ok := base[name]; !ok && strings.TrimSpace(v) != "" {
				base[name] = v
			}
		}
		adjusted, rats, aerr := assumptions.Apply(qc.Assumptions, base)
		if aerr != nil {
			return answer.Textual(q.ID, "Assumption adjustment failed.", aerr.Error())
		}
		rationales = rats
		if v, ok := adjusted[spec.MetricID]; ok && v != result.Value {
			// Re-quantize so adjusted values render like computed ones.
			d, derr := decimal.NewFromString(v)
			if derr == nil {
				if rendered, rerr := p.rounding.Apply(d); rerr == nil {
					finalValue = rendered
				}
			}
		}
	}

	trace := make([]models.TraceEntry, 0, len(result.Trace)+2)
	for _, step := range result.Trace {
		trace = append(trace, models.StepEntry(step))
	}
	if len(qc.Assumptions) > 0 {
		trace = append(trace, models.StepEntry(models.ComputationStep{
			Op:     "ASSUMPTIONS",
			Args:   qc.Assumptions,
			Result: finalValue,
		}))
	}

	check := verify.Consistency(spec.MetricID, finalValue, inputs)
	if !check.OK {
		trace = append(trace, models.NoteEntry(
			fmt.Sprintf("consistency check failed (tolerance %s)", check.Tolerance)))
	}

	final := models.FinalAnswer{Type: models.AnswerNumber, Value: finalValue, Unit: units.UnitUSD}
	switch {
	case metrics.IsPercentMetric(spec.MetricID):
		final.Type = models.AnswerPercent
		final.Unit = units.UnitPercent
	case metrics.IsRatioMetric(spec.MetricID):
		final.Type = models.AnswerRatio
		final.Unit = ""
	}

	return models.AnswerEnvelope{
		ID:          q.ID,
		FinalAnswer: final,
		Trace:       trace,
		Assumptions: rationales,
		Sources:     sources,
	}
}

// gatherInputs assembles the formula's required inputs: the "<p>% of <w>"
// question shape first, then caller-supplied context values (normalized to
// USD when a unit is given), then the structured store, then zero. The zero
// default keeps sparse questions answerable; the trace still shows every
// operand used.
func (p *Pipeline) gatherInputs(ctx context.Context, spec metrics.MetricSpec, question string, qc *models.QuestionContext, period models.Period) (map[string]string, error) {
	inputs := make(map[string]string, len(spec.RequiredInputs))

	if spec.MetricID == "PERCENTAGE_OF" {
		if pct, whole, ok := metrics.PercentOfArgs(question); ok {
			pd, perr := decimal.NewFromString(pct)
			wd, werr := decimal.NewFromString(whole)
			if perr == nil && werr == nil {
				inputs["PART"] = pd.Mul(wd).Div(decimal.NewFromInt(100)).String()
				inputs["WHOLE"] = wd.String()
			}
		}
	}

	for _, name := range spec.RequiredInputs {
		if _, done := inputs[name]; done {
			continue
		}

		raw := ""
		fromUnit := ""
		if qc.Inputs != nil {
			raw = strings.TrimSpace(qc.Inputs[name])
		}
		if qc.Units != nil {
			fromUnit = qc.Units[name]
		}

		if raw == "" && p.store != nil {
			iv, found, err := p.store.Lookup(ctx, name, period)
			if err != nil {
				return nil, err
			}
			if found {
				raw = iv.RawValue
				if fromUnit == "" {
					fromUnit = iv.Unit
				}
			}
		}

		if raw == "" {
			inputs[name] = "0"
			continue
		}

		if fromUnit != "" {
			norm, err := units.ToUSD(raw, fromUnit)
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", name, err)
			}
			raw = norm.Value.String()
		}
		inputs[name] = raw
	}
	return inputs, nil
}

// ════════════════════════════════════════════════════════════════════
// Structured route
// ════════════════════════════════════════════════════════════════════

func (p *Pipeline) answerStructured(ctx context.Context, q models.Question) models.AnswerEnvelope {
	if p.store == nil {
		return answer.Textual(q.ID, "No structured data available.")
	}

	rec, ok, err := p.store.FindByQuestion(ctx, q.Question)
	if err != nil {
		return answer.Textual(q.ID, "Structured lookup failed.", err.Error())
	}
	if !ok {
		return answer.Textual(q.ID, "No data found for the specified query.")
	}

	var sources []string
	if q.Context != nil && q.Context.FilingLink != "" {
		sources = append(sources, q.Context.FilingLink)
	}

	return models.AnswerEnvelope{
		ID: q.ID,
		FinalAnswer: models.FinalAnswer{
			Type:  models.AnswerNumber,
			Value: rec.Value,
			Unit:  rec.Unit,
		},
		Trace: []models.TraceEntry{models.NoteEntry(fmt.Sprintf(
			"structured lookup: %s %s%s = %s",
			rec.Metric, rec.PeriodKind, rec.PeriodEnd, utils.FormatAmount(rec.Value, rec.Unit)))},
		Sources: sources,
	}
}

// ════════════════════════════════════════════════════════════════════
// Narrative route
// ════════════════════════════════════════════════════════════════════

func (p *Pipeline) answerNarrative(ctx context.Context, q models.Question) models.AnswerEnvelope {
	text, sources, err := narrative.Answer(ctx, p.provider, p.sections, q.Question)
	if err != nil {
		return answer.Textual(q.ID, "Narrative answering failed.", err.Error())
	}
	if q.Context != nil && q.Context.FilingLink != "" {
		sources = append(sources, q.Context.FilingLink)
	}
	return models.AnswerEnvelope{
		ID:          q.ID,
		FinalAnswer: models.FinalAnswer{Type: models.AnswerText, Value: text},
		Sources:     sources,
	}
}
