package tradepost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultBaseURL is the public trading post search endpoint.
const DefaultBaseURL = "https://hqxg0u8s64.execute-api.ca-central-1.amazonaws.com/Production/tradingpost"

// DefaultMinInterval keeps the client at 10 req/sec, tested safe for direct
// API access.
const DefaultMinInterval = 100 * time.Millisecond

const (
	requestTimeout = 10 * time.Second

	// maxRetries bounds retry attempts per page for 429/5xx/network failures.
	maxRetries     = 3
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// Client is a throttled trading post API client. The throttle is per
// instance: concurrent clients do not share a rate budget.
type Client struct {
	http        *http.Client
	baseURL     string
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a client against the given endpoint, enforcing a minimum
// inter-request interval. Zero values fall back to the defaults above.
func NewClient(baseURL string, minInterval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Client{
		http:        &http.Client{Timeout: requestTimeout},
		baseURL:     baseURL,
		minInterval: minInterval,
	}
}

// FetchItemTrades fetches all trade pages for a search term, 1-indexed,
// stopping at the first empty page or after maxPages pages. On failure the
// pages collected so far are returned together with the error; callers keep
// partial data rather than discarding it.
func (c *Client) FetchItemTrades(ctx context.Context, searchText string, maxPages int) ([]TradeRecord, error) {
	var all []TradeRecord
	for page := 1; page <= maxPages; page++ {
		records, err := c.fetchPage(ctx, searchText, page)
		if err != nil {
			return all, fmt.Errorf("fetch %q: %w", searchText, err)
		}
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
	}
	return all, nil
}

// FetchItemTradesSince is FetchItemTrades with an age cutoff: pagination also
// stops once a full page contains no trade at or after cutoff, and older
// trades are dropped. Trades whose timestamp failed to parse (zero time) are
// kept, matching the lenient treatment upstream data requires.
func (c *Client) FetchItemTradesSince(ctx context.Context, searchText string, maxPages int, cutoff time.Time) ([]TradeRecord, error) {
	var all []TradeRecord
	for page := 1; page <= maxPages; page++ {
		records, err := c.fetchPage(ctx, searchText, page)
		if err != nil {
			return all, fmt.Errorf("fetch %q: %w", searchText, err)
		}
		if len(records) == 0 {
			break
		}
		pageHasRecent := false
		for _, r := range records {
			if r.Time.IsZero() || !r.Time.Before(cutoff) {
				all = append(all, r)
				pageHasRecent = true
			}
		}
		if !pageHasRecent {
			break
		}
	}
	return all, nil
}

// fetchPage fetches a single result page with bounded exponential backoff.
// Retriable failures: HTTP 429, 5xx, and transport-level errors.
func (c *Client) fetchPage(ctx context.Context, searchText string, page int) ([]TradeRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		records, retriable, err := c.doPage(ctx, searchText, page)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !retriable {
			return nil, err
		}
		log.Printf("[TradePost] %q page %d attempt %d: %v", searchText, page, attempt+1, err)
	}
	return nil, fmt.Errorf("page %d: retries exhausted: %w", page, lastErr)
}

// doPage performs one HTTP round trip. The second return value reports
// whether the failure is worth retrying.
func (c *Client) doPage(ctx context.Context, searchText string, page int) ([]TradeRecord, bool, error) {
	u := fmt.Sprintf("%s?search_text=%s&page=%d", c.baseURL, url.QueryEscape(searchText), page)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure: no response at all.
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("tradepost %d", resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("tradepost %d: %s", resp.StatusCode, body)
	}

	var records []TradeRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, false, fmt.Errorf("decode page %d: %w", page, err)
	}
	return records, false, nil
}

// throttle blocks until the minimum inter-request interval has elapsed.
// Holding the mutex across the wait serializes concurrent callers onto the
// shared rate budget.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.minInterval - time.Since(c.lastRequest); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
