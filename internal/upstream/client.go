// internal/upstream/client.go
// Package upstream provides the HTTP client for the campus CMS API. It owns
// transport configuration, upstream error classification, response caching
// and the guard step that coerces payloads into the canonical list shape.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/campuskit/campus-proxy-go/internal/cache"
	"github.com/campuskit/campus-proxy-go/internal/canonical"
	"github.com/campuskit/campus-proxy-go/internal/metrics"
)

// Sentinel errors classifying upstream failures. Callers branch with errors.Is.
var (
	ErrUnreachable = errors.New("upstream unreachable")
	ErrBadStatus   = errors.New("upstream returned unexpected status")
	ErrMalformed   = errors.New("upstream payload malformed")
	ErrNotFound    = errors.New("upstream resource not found")
)

// Client for the upstream CMS API.
type Client struct {
	base    string
	hc      *http.Client
	cache   cache.Cache
	metrics *metrics.Metrics
}

// New creates an upstream client for the given base URL. The transport uses a
// short dial timeout so a dead CMS degrades the site quickly instead of
// stalling page loads.
func New(baseURL string, c cache.Cache, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &Client{
		base:    baseURL,
		hc:      &http.Client{Transport: transport, Timeout: 10 * time.Second},
		cache:   c,
		metrics: m,
	}
}

// FetchList retrieves a paginated collection and coerces it into the
// canonical list shape. Transport failures, non-2xx statuses and unparsable
// bodies are returned as classified errors; payloads that parse but deviate
// from the expected shape are logged and silently coerced.
func (c *Client) FetchList(ctx context.Context, resource, path string, q url.Values, ttl time.Duration) (canonical.List, error) {
	body, err := c.get(ctx, resource, path, q, ttl)
	if err != nil {
		return canonical.Empty(), err
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return canonical.Empty(), fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if violations := canonical.Check(v); violations != nil {
		slog.Debug("upstream list payload deviates from canonical shape",
			"resource", resource, "violations", violations)
	}
	return canonical.Guard(v), nil
}

// FetchObject retrieves a single record as a decoded JSON object.
func (c *Client) FetchObject(ctx context.Context, resource, path string, q url.Values, ttl time.Duration) (map[string]any, error) {
	body, err := c.get(ctx, resource, path, q, ttl)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrMalformed, v)
	}
	return m, nil
}

// Ping checks upstream reachability for readiness probes. Any HTTP response,
// including an error status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp.Body.Close()
	return nil
}

// get performs the cached HTTP GET against the upstream API.
func (c *Client) get(ctx context.Context, resource, path string, q url.Values, ttl time.Duration) ([]byte, error) {
	key := path + "?" + q.Encode()
	if ttl > 0 {
		if body, ok := c.cache.Get(ctx, key); ok {
			c.countCache("hit")
			return body, nil
		}
		c.countCache("miss")
	}

	u, err := url.Parse(c.base)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	u.Path = joinPath(u.Path, path)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.observe(resource, "error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	c.observe(resource, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		if ttl > 0 {
			c.cache.Set(ctx, key, body, ttl)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
}

func (c *Client) observe(resource, status string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequestTotal.WithLabelValues(resource, status).Inc()
	c.metrics.UpstreamRequestDuration.WithLabelValues(resource, status).Observe(d.Seconds())
}

func (c *Client) countCache(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CacheTotal.WithLabelValues(result).Inc()
}

// joinPath concatenates the base path and the resource path with exactly one
// separating slash.
func joinPath(basePath, path string) string {
	for len(basePath) > 0 && basePath[len(basePath)-1] == '/' {
		basePath = basePath[:len(basePath)-1]
	}
	if len(path) == 0 || path[0] != '/' {
		path = "/" + path
	}
	return basePath + path
}
