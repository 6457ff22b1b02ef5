// Package geodata wraps the external geodata collaborators: Nominatim for
// geocoding, Overpass for tag enrichment and Wikidata for textual evidence.
// All requests go through one polite HTTP client with a shared response
// cache, an inter-call delay and bounded retry on transient failures.
package geodata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/FACorreiaa/go-alternative-pois/app/observability/metrics"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
)

// ClientConfig carries the knobs for the shared collaborator client.
type ClientConfig struct {
	UserAgent    string
	RequestDelay time.Duration
	Timeout      time.Duration
	MaxRetries   int
	CacheTTL     time.Duration
}

// Client is the shared HTTP front for all geodata collaborators. Responses
// are cached by method+URL+params so repeated lookups within a run never hit
// the network twice.
type Client struct {
	httpClient *http.Client
	store      cache.Store
	logger     *slog.Logger
	cfg        ClientConfig

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(cfg ClientConfig, store cache.Store, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		logger:     logger,
		cfg:        cfg,
	}
}

func cacheKey(method, rawURL, body string) string {
	sum := sha256.Sum256([]byte(method + "|" + rawURL + "|" + body))
	return "http:" + hex.EncodeToString(sum[:8])
}

// politeWait enforces the configured inter-call delay across goroutines.
func (c *Client) politeWait(ctx context.Context) {
	if c.cfg.RequestDelay <= 0 {
		return
	}
	c.mu.Lock()
	wait := c.cfg.RequestDelay - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()
	if wait <= 0 {
		return
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func retryable(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) do(ctx context.Context, method, rawURL string, body string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 1200 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		c.politeWait(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		if body != "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		metrics.Get().CollaboratorRequestsTotal.Add(ctx, 1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "collaborator request failed",
				slog.String("url", rawURL), slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return payload, nil
		}
		lastErr = fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
		if !retryable(resp.StatusCode) {
			return nil, lastErr
		}
		c.logger.WarnContext(ctx, "collaborator returned retryable status",
			slog.String("url", rawURL), slog.Int("status", resp.StatusCode), slog.Int("attempt", attempt))
	}
	return nil, lastErr
}

// GetJSON performs a cached GET and decodes the JSON payload into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	rawURL := endpoint
	if len(params) > 0 {
		rawURL = endpoint + "?" + params.Encode()
	}
	key := cacheKey(http.MethodGet, rawURL, "")
	if cached, ok := c.store.Get(ctx, key); ok {
		return json.Unmarshal(cached, out)
	}
	payload, err := c.do(ctx, http.MethodGet, rawURL, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	c.store.Set(ctx, key, payload, c.cfg.CacheTTL)
	return nil
}

// PostForm performs a cached form POST and decodes the JSON payload into out.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	body := form.Encode()
	key := cacheKey(http.MethodPost, endpoint, body)
	if cached, ok := c.store.Get(ctx, key); ok {
		return json.Unmarshal(cached, out)
	}
	payload, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	c.store.Set(ctx, key, payload, c.cfg.CacheTTL)
	return nil
}

// GetRaw performs an uncached GET and returns the raw payload. Used by the
// raster tile probes, which cache their derived scalars instead.
func (c *Client) GetRaw(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	rawURL := endpoint
	if len(params) > 0 {
		rawURL = endpoint + "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, rawURL, "")
}
