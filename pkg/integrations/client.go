package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/skillindex/pkg/cache"
	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/observability"
)

// HeaderFunc returns request headers computed at call time, such as
// short-lived credentials.
type HeaderFunc func(ctx context.Context) map[string]string

// Client provides shared HTTP functionality for API clients.
// It handles response caching, common request headers and status mapping.
// It never retries; retry policy belongs to the caller.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	headers map[string]string
	auth    HeaderFunc
}

// NewClient creates a Client with the given cache and default headers.
// Cache keys are prefixed with namespace and stored for ttl.
// Headers are applied to all requests made through this client.
// Pass nil for c to disable caching and nil for headers if no default
// headers are needed.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:    NewHTTPClient(),
		cache:   cache.Namespaced(c, namespace),
		ttl:     ttl,
		headers: headers,
	}
}

// SetAuth installs a function whose headers are added to every request
// after the defaults. Per-request headers still take precedence.
func (c *Client) SetAuth(fn HeaderFunc) { c.auth = fn }

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored as JSON.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if !refresh {
		data, hit, err := c.cache.Get(ctx, key)
		if err == nil && hit && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, keyType(key))
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, keyType(key))
	}
	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	resp, err := c.Do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// GetText performs an HTTP GET request and returns the response body as a string.
func (c *Client) GetText(ctx context.Context, url string, headers map[string]string) (string, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return string(data), err
}

// Head performs an HTTP HEAD request and reports whether it succeeded.
func (c *Client) Head(ctx context.Context, url string) error {
	resp, err := c.Do(ctx, http.MethodHead, url, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PostJSON JSON-encodes body (if non-nil), POSTs it and decodes the response into v.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, v any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
		headers = mergeHeaders(map[string]string{"Content-Type": "application/json"}, headers)
	}
	resp, err := c.Do(ctx, http.MethodPost, url, headers, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// Do sends a request with the default, auth and per-request headers applied
// (in that order of precedence, last wins) and maps non-2xx responses to errors.
// On success the caller must close the response body.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers map[string]string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.auth != nil {
		for k, v := range c.auth(ctx) {
			req.Header.Set(k, v)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkResponse maps non-2xx responses to errors. A 403 or 429 carrying
// exhausted rate-limit headers becomes *errors.RateLimitedError; any other
// failure becomes *errors.APIError, which also matches ErrNotFound for 404.
func checkResponse(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	if rl := rateLimit(resp); rl != nil {
		return rl
	}
	apiErr := &errors.APIError{Status: code, Method: resp.Request.Method, URL: redact(resp.Request.URL)}
	if code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}

func rateLimit(resp *http.Response) *errors.RateLimitedError {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	h := resp.Header
	remaining, hasRemaining := headerInt(h, "X-RateLimit-Remaining")
	retryAfter, hasRetryAfter := headerInt(h, "Retry-After")
	if !hasRetryAfter && !(hasRemaining && remaining == 0) && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	rl := &errors.RateLimitedError{Remaining: remaining, RetryAfter: retryAfter}
	if reset, ok := headerInt(h, "X-RateLimit-Reset"); ok {
		rl.Reset = time.Unix(int64(reset), 0)
	}
	if resp.Request != nil {
		rl.Message = resp.Request.URL.Path
	}
	return rl
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// redact drops the query string, which may carry search terms or tokens.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

func mergeHeaders(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// keyType returns the leading segment of a cache key ("repo" for
// "repo:owner/name") for cache hook events.
func keyType(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
