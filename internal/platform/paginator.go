package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Known item-array keys across the platform's list endpoints. Responses are
// heterogeneous: each endpoint wraps its items under a different key.
var itemKeys = []string{
	"participants",
	"registrants",
	"instances",
	"webinars",
	"meetings",
	"recordings",
	"questions",
	"polls",
}

// transientRetrySchedule is applied only within the first few pages; a
// failure deep into a long fetch propagates instead of looping forever.
var transientRetrySchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

const transientRetryPageLimit = 3

// Paginator walks a cursor-paginated list endpoint to exhaustion.
type Paginator struct {
	client   *Client
	pageSize int
	maxPages int
}

func NewPaginator(client *Client, pageSize, maxPages int) *Paginator {
	return &Paginator{client: client, pageSize: pageSize, maxPages: maxPages}
}

// FetchAll follows the next_page_token cursor until it is exhausted and
// returns the concatenation of all page items, in page order. A 429 never
// advances the cursor: the client retries the same page internally before
// the paginator sees a response.
func (p *Paginator) FetchAll(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	nextToken := ""

	for page := 0; page < p.maxPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page_size", strconv.Itoa(p.pageSize))
		if nextToken != "" {
			q.Set("next_page_token", nextToken)
		}

		body, err := p.fetchPage(ctx, path, q, page)
		if err != nil {
			return nil, err
		}

		pageItems, token, err := extractItems(body)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", page, path, err)
		}
		items = append(items, pageItems...)

		if token == "" {
			return items, nil
		}
		nextToken = token
	}

	zap.S().Named("platform").Warnf("stopping %s after %d pages with cursor still present", path, p.maxPages)
	return items, nil
}

// fetchPage retries transient failures (network errors, 5xx) with a fixed
// backoff schedule, but only while still within the first few pages.
func (p *Paginator) fetchPage(ctx context.Context, path string, query url.Values, page int) ([]byte, error) {
	var lastErr error

	attempts := 1
	if page < transientRetryPageLimit {
		attempts += len(transientRetrySchedule)
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := p.client.sleep(ctx, transientRetrySchedule[attempt-1]); err != nil {
				return nil, err
			}
		}

		body, err := p.client.Get(ctx, path, query)
		if err == nil {
			return body, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("page %d of %s failed after retries: %w", page, path, lastErr)
}

func isTransient(err error) bool {
	if errors.Is(err, ErrDailyBudgetExhausted) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	// Anything that is not a typed API error is a network-level failure.
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// extractItems normalizes a page body into a flat item list plus the
// continuation cursor.
func extractItems(body []byte) ([]json.RawMessage, string, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("decoding page envelope: %w", err)
	}

	var token string
	if raw, ok := envelope["next_page_token"]; ok {
		if err := json.Unmarshal(raw, &token); err != nil {
			return nil, "", fmt.Errorf("decoding next_page_token: %w", err)
		}
	}

	for _, key := range itemKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		return items, token, nil
	}

	// Unknown shape with no recognizable item array. An empty page with only
	// bookkeeping fields is legitimate (e.g. zero registrants).
	return nil, token, nil
}
