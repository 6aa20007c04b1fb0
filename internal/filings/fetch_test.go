package filings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchAndParse(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(sampleFiling))
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("filingiq-test/1.0"))
	f, err := c.FetchAndParse(context.Background(), srv.URL, "ACME")
	assertNoErr(t, err)

	assertEqual(t, "filingiq-test/1.0", gotUA)
	assertEqual(t, srv.URL, f.Link)
	assertEqual(t, 2, len(f.Sections))
	if len(f.Records) == 0 {
		t.Error("expected records from the statement table")
	}
}

func TestFetchAndParse_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.FetchAndParse(context.Background(), srv.URL, "ACME")

	var he *ErrHTTP
	if !errors.As(err, &he) {
		t.Fatalf("expected *ErrHTTP, got %T (%v)", err, err)
	}
	assertEqual(t, http.StatusTooManyRequests, he.StatusCode)
}

func TestRateLimiter_Exhaustion(t *testing.T) {
	rl := newRateLimiter(2, time.Hour)
	ctx := context.Background()

	assertNoErr(t, rl.wait(ctx))
	assertNoErr(t, rl.wait(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := rl.wait(cancelled); err == nil {
		t.Fatal("expected a context error once tokens are exhausted")
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)
	ctx := context.Background()

	assertNoErr(t, rl.wait(ctx))
	start := time.Now()
	assertNoErr(t, rl.wait(ctx))
	if time.Since(start) > 2*time.Second {
		t.Error("refill took too long")
	}
}
