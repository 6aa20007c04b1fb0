package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaComplete(t *testing.T) {
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "  The risks are supply chain.  "},
			Done:    true,
		})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, WithOllamaModel("llama3.1:8b"))
	assertNoErr(t, err)

	got, err := p.Complete(context.Background(), "You summarize filings.", "What are the risks?")
	assertNoErr(t, err)

	assertEqual(t, "The risks are supply chain.", got)
	assertEqual(t, "llama3.1:8b", gotReq.Model)
	assertEqual(t, false, gotReq.Stream)
	assertEqual(t, 2, len(gotReq.Messages))
	assertEqual(t, "system", gotReq.Messages[0].Role)
	assertEqual(t, "user", gotReq.Messages[1].Role)
}

func TestOllamaComplete_NoSystemPrompt(t *testing.T) {
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "ok"}, Done: true})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL)
	assertNoErr(t, err)
	_, err = p.Complete(context.Background(), "", "hello")
	assertNoErr(t, err)
	assertEqual(t, 1, len(gotReq.Messages))
	assertEqual(t, "qwen2.5:7b", gotReq.Model)
}

func TestOllamaComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL)
	assertNoErr(t, err)
	if _, err := p.Complete(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestOllamaPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL)
	assertNoErr(t, err)
	assertNoErr(t, p.Ping(context.Background()))
}

func TestOllamaPing_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL)
	assertNoErr(t, err)
	if err := p.Ping(context.Background()); !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
}

func TestNoopProvider(t *testing.T) {
	p := NoopProvider{}
	assertEqual(t, ProviderNone, p.Name())
	assertNoErr(t, p.Ping(context.Background()))
	if _, err := p.Complete(context.Background(), "", "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

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
