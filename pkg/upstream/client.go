// Package upstream provides the endpoint adapters for the rate-limited
// third-party recipe API. Each adapter performs one logical upstream
// request, paces itself against the provider's requests-per-second
// ceiling, and normalizes the response into the canonical cache payload
// shape. Adapters never touch the cache or the quota ledger; that is the
// orchestrator's job.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipecache_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipecache_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipecache_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the production recipe API endpoint.
const DefaultBaseURL = "https://api.spoonacular.com"

// Config holds the upstream client configuration.
type Config struct {
	// BaseURL of the recipe API.
	BaseURL string

	// APIKey is sent as a query parameter on every request.
	APIKey string

	// UserAgent header.
	UserAgent string

	// Timeout bounds each upstream call. A timed-out call is treated
	// identically to a failed call.
	Timeout time.Duration

	// MinInterval is the minimum spacing between any two calls on the
	// shared transport, independent of the daily quota.
	MinInterval time.Duration

	// Retry configuration for transient failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		APIKey:      apiKey,
		UserAgent:   "recipecache/0.1.0",
		Timeout:     10 * time.Second,
		MinInterval: 500 * time.Millisecond,
		Retry:       DefaultRetryConfig(),
	}
}

// Client is the shared transport behind all four endpoint adapters.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates an upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 500 * time.Millisecond
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		// Burst of 1: calls are spaced at least MinInterval apart.
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		config:  cfg,
		logger:  log.With().Str("component", "upstream").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// getJSON performs one paced, retried GET against the upstream API and
// decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	reqURL, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body []byte
	attempt := func() error {
		// Pacing applies to every attempt, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			upstreamRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Upstream request failed")
			return &Error{Class: ErrorClassNetwork, Endpoint: endpoint, Message: "transport error", Err: err}
		}
		defer resp.Body.Close()

		upstreamRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			class := classifyStatus(resp.StatusCode)
			upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("Upstream request error")
			// Drain so the connection can be reused across retries.
			_, _ = io.Copy(io.Discard, resp.Body)
			return &Error{
				StatusCode: resp.StatusCode,
				Class:      class,
				Endpoint:   endpoint,
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &Error{Class: ErrorClassNetwork, Endpoint: endpoint, Message: "read response body", Err: err}
		}
		return nil
	}

	classify := func(err error) ErrorClass {
		var ue *Error
		if errors.As(err, &ue) {
			return ue.Class
		}
		return ErrorClassNetwork
	}

	if err := retryWithBackoff(ctx, c.logger, c.config.Retry, attempt, classify); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Class: ErrorClassServer, Endpoint: endpoint, Message: "decode response", Err: err}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Upstream request complete")

	return nil
}

// buildURL joins the base URL, path, query parameters and API key.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path

	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.config.APIKey)
	u.RawQuery = query.Encode()

	return u.String(), nil
}
