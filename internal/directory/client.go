// Package directory talks to the core directory API: paginated name
// listings and per-name profile lookups.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/kantai/blockstack-search-indexer/internal/model"
	"github.com/kantai/blockstack-search-indexer/internal/platform/metrics"
)

// Client is a thin HTTP client over the directory service. Pagination and
// lookup calls share one optional client-side rate limiter so every request
// to the upstream counts against the same budget.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.http = c
		}
	}
}

// WithLogger sets the progress/error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// WithMetrics attaches pipeline metrics; nil leaves the client unmetered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithRateLimit caps outbound requests per second; zero or negative disables
// the limiter.
func WithRateLimit(rps float64) Option {
	return func(client *Client) {
		if rps > 0 {
			client.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient constructs a directory client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListPage fetches one page of names for the given listing kind. An empty
// page marks the end of the listing.
func (c *Client) ListPage(ctx context.Context, kind model.NameKind, page int) ([]string, error) {
	var names []string
	url := fmt.Sprintf("%s/v1/%s?page=%d", c.baseURL, kind, page)
	if err := c.get(ctx, url, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// LookupProfile resolves a single name to its profile document. The service
// may wrap the profile under the queried username; both shapes are accepted.
// No timeout is imposed here: callers bound the lookup via ctx.
func (c *Client) LookupProfile(ctx context.Context, name string) (model.Profile, error) {
	var body map[string]any
	lookupURL := fmt.Sprintf("%s/v1/users/%s", c.baseURL, url.PathEscape(name))
	if err := c.get(ctx, lookupURL, &body); err != nil {
		return nil, err
	}
	for _, key := range []string{model.UsernameFor(name), name} {
		if wrapped, ok := body[key].(map[string]any); ok {
			if profile, ok := wrapped["profile"].(map[string]any); ok {
				return profile, nil
			}
		}
	}
	return body, nil
}
