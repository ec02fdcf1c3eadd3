package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/webilytics/webinar-sync/internal/auth"
	"github.com/webilytics/webinar-sync/internal/config"
	"github.com/webilytics/webinar-sync/pkg/metrics"
)

const (
	initialBackoff     = 2 * time.Second
	maxBackoff         = 2 * time.Minute
	defaultRetryAfter  = 60 * time.Second
	defaultHTTPTimeout = 30 * time.Second
)

// ErrDailyBudgetExhausted is returned once the daily request counter reaches
// the configured ceiling. The budget is a hard stop: callers must not retry
// before the next UTC day.
var ErrDailyBudgetExhausted = errors.New("daily API request budget exhausted")

// RateLimitError signals an HTTP 429 from the platform.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by platform, retry after %s", e.RetryAfter)
}

// APIError is a non-429 error response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the error is worth retrying at a higher level.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500
}

// Client wraps every remote call with a daily request budget, steady
// per-second pacing and capped exponential backoff on 429s.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     auth.TokenProvider
	limiter    *rate.Limiter
	maxRetries int

	mu          sync.Mutex
	dailyBudget int
	used        int
	budgetDay   time.Time

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg *config.Config, tokens auth.TokenProvider) *Client {
	return &Client{
		baseURL:     cfg.Platform.BaseUrl,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		tokens:      tokens,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Sync.RequestsPerSec), 1),
		maxRetries:  cfg.Sync.MaxRetries,
		dailyBudget: cfg.Sync.DailyBudget,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RequestsUsed returns the number of requests issued in the current UTC day.
func (c *Client) RequestsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if day := time.Now().UTC().Truncate(24 * time.Hour); !day.Equal(c.budgetDay) {
		return 0
	}
	return c.used
}

// reserve consumes one request from the daily budget, resetting the counter
// at UTC day boundaries.
func (c *Client) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := time.Now().UTC().Truncate(24 * time.Hour)
	if !day.Equal(c.budgetDay) {
		c.budgetDay = day
		c.used = 0
	}
	if c.used >= c.dailyBudget {
		return ErrDailyBudgetExhausted
	}
	c.used++
	metrics.IncreaseAPIRequestsMetric()
	return nil
}

// Get issues a GET against the platform, retrying 429 responses with capped
// exponential backoff that honors the Retry-After hint. Every attempt counts
// against the daily budget.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	backoff := initialBackoff

	for attempt := 0; ; attempt++ {
		if err := c.reserve(); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.do(ctx, path, query)
		if err == nil {
			return body, nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			return nil, err
		}

		if attempt+1 >= c.maxRetries {
			return nil, fmt.Errorf("giving up after %d rate-limited attempts: %w", attempt+1, err)
		}

		delay := backoff
		if rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}
		if delay > maxBackoff {
			delay = maxBackoff
		}
		zap.S().Named("platform").Debugf("rate limited on %s, backing off %s (attempt %d)", path, delay, attempt+1)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("building platform url: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling platform: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading platform response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
