package filings

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/filingiq/pkg/utils"
)

const edgarBrowseURL = "https://www.sec.gov/cgi-bin/browse-edgar"

// Listing is one entry from the EDGAR filing feed.
type Listing struct {
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Form    string    `json:"form"`
	Updated time.Time `json:"updated"`
}

// EdgarClient lists filings from the SEC EDGAR Atom feeds.
type EdgarClient struct {
	parser  *gofeed.Parser
	baseURL string
}

// EdgarOption configures the client.
type EdgarOption func(*EdgarClient)

// WithEdgarBaseURL overrides the feed endpoint, used in tests.
func WithEdgarBaseURL(base string) EdgarOption {
	return func(c *EdgarClient) { c.baseURL = base }
}

// NewEdgarClient creates an EDGAR feed client.
func NewEdgarClient(opts ...EdgarOption) *EdgarClient {
	c := &EdgarClient{
		parser:  gofeed.NewParser(),
		baseURL: edgarBrowseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListFilings returns the most recent filings for a company. cik is the SEC
// central index key or ticker; form filters by filing type ("10-K", "10-Q")
// and may be empty for all forms.
func (c *EdgarClient) ListFilings(ctx context.Context, cik, form string, count int) ([]Listing, error) {
	if count <= 0 {
		count = 10
	}
	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", utils.NormalizeCIK(cik))
	q.Set("type", form)
	q.Set("count", fmt.Sprint(count))
	q.Set("output", "atom")

	feed, err := c.parser.ParseURLWithContext(c.baseURL+"?"+q.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("filings: edgar feed for %s: %w", cik, err)
	}

	listings := make([]Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		l := Listing{
			Title: item.Title,
			Link:  item.Link,
		}
		if item.UpdatedParsed != nil {
			l.Updated = *item.UpdatedParsed
		} else if item.PublishedParsed != nil {
			l.Updated = *item.PublishedParsed
		}
		if ft, ok := item.Custom["filing-type"]; ok {
			l.Form = ft
		}
		listings = append(listings, l)
	}
	return listings, nil
}
