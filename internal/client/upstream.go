// Package client provides the pooled HTTP client used for every upstream service.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"legal-gateway/internal/config"
	"legal-gateway/internal/metrics"
	"legal-gateway/internal/model"
)

// UpstreamClient sends prepared requests to the backend services.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling. The
// configured timeout bounds the wait for response headers only; bodies in
// either direction stream for as long as the caller stays connected. The
// metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		// Starts once the request body is fully written.
		ResponseHeaderTimeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
	}
	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			// Redirects are the caller's business; hand them back untouched.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Do sends ur upstream and returns the response with its body still streaming.
// The provided context controls the lifetime of the upstream request: when the
// context is canceled (e.g. client disconnects), the upstream request is also
// canceled. The caller is responsible for closing the response body.
func (c *UpstreamClient) Do(ctx context.Context, ur *model.UpstreamRequest) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, ur.Method, ur.URL, ur.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = ur.Header
	if ur.Body != http.NoBody {
		// -1 means unknown length; the transport then streams it chunked.
		req.ContentLength = ur.ContentLength
	}

	c.logger.Debug("upstream request",
		"service", ur.Service,
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)
	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(ur.Service, method).Observe(duration)
			c.metrics.UpstreamFailures.WithLabelValues(ur.Service, method).Inc()
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(ur.Service, method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(ur.Service, method, status).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
