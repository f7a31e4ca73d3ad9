// Package external fetches best-effort live context for the dashboard:
// weather, hotel pricing, flight arrivals, exchange rates and travel
// advisories. Every fetch degrades to an unavailable result on failure
// and goes through an optional Redis cache.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/pkg/errors"
)

// Client calls the external tourism data sources.
type Client struct {
	config     *Config
	httpClient *http.Client
	cache      *Cache
	logger     *logrus.Logger
}

// NewClient creates an external data client. The cache may be nil, in
// which case every call goes to the upstream API.
func NewClient(config *Config, cache *Cache, logger *logrus.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		cache:      cache,
		logger:     logger,
	}
}

// getJSON performs one GET and decodes the body into out. A non-2xx
// status or transport failure becomes an upstream error; there is no
// retry, callers cache successes instead.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, out interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewUpstreamUnavailableError(fmt.Sprintf("invalid upstream URL %s", rawURL), err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.NewUpstreamUnavailableError("failed to build upstream request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstreamUnavailableError(fmt.Sprintf("upstream request to %s failed", u.Host), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return errors.NewUpstreamUnavailableError(
			fmt.Sprintf("upstream %s returned status %d", u.Host, resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstreamUnavailableError(fmt.Sprintf("upstream %s returned malformed JSON", u.Host), err)
	}
	return nil
}

// fetchCached serves from the cache when possible and stores fresh
// successes back. Failures never poison the cache.
func fetchCached[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func() (T, error)) Result[T] {
	var value T
	if c.cache != nil && c.cache.Get(ctx, key, &value) {
		return Available(value)
	}

	value, err := fetch()
	if err != nil {
		c.logger.WithError(err).WithField("source", key).Warn("External source unavailable")
		return Unavailable[T](err)
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, value, ttl)
	}
	return Available(value)
}
