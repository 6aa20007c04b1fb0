package filings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Client downloads filing documents. SEC fair-access rules require a
// descriptive user agent and throttle clients to 10 requests per second.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rateLimiter
}

// ClientOption configures the filing client.
type ClientOption func(*Client)

// WithUserAgent sets the user agent sent to the SEC.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a filing download client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "filingiq/1.0",
		limiter:    newRateLimiter(10, time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAndParse downloads a filing document and parses it.
func (c *Client) FetchAndParse(ctx context.Context, url, company string) (*Filing, error) {
	body, err := c.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	f, err := ParseHTML(body, company)
	if err != nil {
		return nil, err
	}
	f.Link = url
	return f, nil
}

// doGet performs a throttled GET request. The caller closes the body.
func (c *Client) doGet(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return resp.Body, nil
}

// --- Rate limiter ---

// rateLimiter provides simple token-bucket rate limiting.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// newRateLimiter creates a limiter that allows maxTokens requests per
// refillRate duration.
func newRateLimiter(maxTokens int, refillRate time.Duration) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// wait blocks until a token is available or the context is cancelled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *rateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= rl.refillRate {
		periods := int(elapsed / rl.refillRate)
		rl.tokens += periods
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
	}
}
