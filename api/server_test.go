package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seenimoa/filingiq/internal/agent"
	"github.com/seenimoa/filingiq/internal/config"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{}
	cfg.Compute.BatchWorkers = 2

	return NewServer(cfg, agent.New(agent.WithStore(st)), st)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

// ════════════════════════════════════════════════════════════════════
// Endpoint Tests
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/v1/healthz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		assertEqual(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		assertEqual(t, true, resp.Success)
	}
}

func TestAnswer(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/answer", models.Question{
		ID:       "q-1",
		Question: "What is 15% of 100?",
	})
	assertEqual(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assertEqual(t, true, resp.Success)

	data, _ := json.Marshal(resp.Data)
	var env models.AnswerEnvelope
	assertNoErr(t, json.Unmarshal(data, &env))
	assertEqual(t, "q-1", env.ID)
	assertEqual(t, models.AnswerPercent, env.FinalAnswer.Type)
	assertEqual(t, "15.00", env.FinalAnswer.Value)
}

func TestAnswer_MissingQuestion(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/answer", models.Question{})
	assertEqual(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assertEqual(t, false, resp.Success)
	assertEqual(t, "question is required", resp.Error)
}

func TestAnswerBatch(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/answer/batch", []models.Question{
		{ID: "a", Question: "What is 10% of 200?"},
		{ID: "b", Question: "What is 50% of 80?"},
	})
	assertEqual(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	var envs []models.AnswerEnvelope
	assertNoErr(t, json.Unmarshal(data, &envs))
	assertEqual(t, 2, len(envs))
	assertEqual(t, "a", envs[0].ID)
	assertEqual(t, "b", envs[1].ID)
}

func TestAnswerBatch_Empty(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/answer/batch", []models.Question{})
	assertEqual(t, http.StatusBadRequest, rec.Code)
}

func TestCalc(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/calc", CalcRequest{Expression: "(150 - 100) / 100 * 100"})
	assertEqual(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	var out map[string]string
	assertNoErr(t, json.Unmarshal(data, &out))
	assertEqual(t, "50", out["result"])
}

// Sandbox rejections are caller errors.
func TestCalc_Disallowed(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/calc", CalcRequest{Expression: "__import__('os')"})
	assertEqual(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assertEqual(t, false, resp.Success)
}

func TestCompute(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/compute", ComputeRequest{
		MetricID: "GROSS_MARGIN",
		Period:   models.Period{Kind: models.PeriodFY, End: "2023-12-31"},
		Inputs:   map[string]string{"GROSS_PROFIT": "250", "REVENUE": "1000"},
	})
	assertEqual(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	var result struct {
		Value string `json:"value"`
	}
	assertNoErr(t, json.Unmarshal(data, &result))
	assertEqual(t, "25.00", result.Value)
}

func TestCompute_MissingInput(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/compute", ComputeRequest{
		MetricID: "GROSS_MARGIN",
		Inputs:   map[string]string{"GROSS_PROFIT": "250"},
	})
	assertEqual(t, http.StatusBadRequest, rec.Code)
}

func TestIngestThenAnswer(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/records", IngestRequest{
		Records: []store.Record{
			{Metric: "REVENUE", PeriodKind: models.PeriodFY, PeriodEnd: "2024-12-31", Value: "1200000", Unit: "USD"},
		},
	})
	assertEqual(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/answer", models.Question{
		Question: "What was the revenue in 2024?",
	})
	assertEqual(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	var env models.AnswerEnvelope
	assertNoErr(t, json.Unmarshal(data, &env))
	assertEqual(t, "1200000", env.FinalAnswer.Value)
}

func TestIngest_NoStore(t *testing.T) {
	cfg := &config.Config{}
	srv := NewServer(cfg, agent.New(), nil)

	rec := doJSON(t, srv, http.MethodPost, "/v1/records", IngestRequest{
		Records: []store.Record{{Metric: "REVENUE", PeriodEnd: "2024", Value: "1"}},
	})
	assertEqual(t, http.StatusServiceUnavailable, rec.Code)
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
