package transport

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// Option configures a Default transport at construction time.
type Option func(*config)

type config struct {
	maxIdleConns        int
	maxIdleConnsPerHost int
	idleConnTimeout     time.Duration
	disableKeepAlives   bool
	insecureSkipVerify  bool
}

// WithMaxIdleConns sets the connection pool's total idle-connection cap.
func WithMaxIdleConns(n int) Option {
	return func(c *config) { c.maxIdleConns = n }
}

// WithMaxIdleConnsPerHost sets the connection pool's per-host idle cap.
func WithMaxIdleConnsPerHost(n int) Option {
	return func(c *config) { c.maxIdleConnsPerHost = n }
}

// WithIdleConnTimeout sets how long an idle connection is kept before being
// closed.
func WithIdleConnTimeout(d time.Duration) Option {
	return func(c *config) { c.idleConnTimeout = d }
}

// WithDisableKeepAlives forces a fresh connection per request.
func WithDisableKeepAlives(disable bool) Option {
	return func(c *config) { c.disableKeepAlives = disable }
}

// WithInsecureSkipVerify disables TLS certificate verification. Intended for
// tests against self-signed httptest servers, never for production use.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *config) { c.insecureSkipVerify = skip }
}

// Default is the net/http-backed Transport implementation every session
// uses unless the caller supplies an override.
type Default struct {
	client *http.Client
}

// New builds a Default transport with the connection pool tuned per opts.
func New(opts ...Option) *Default {
	cfg := config{
		maxIdleConns:        100,
		maxIdleConnsPerHost: 10,
		idleConnTimeout:     90 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := &http.Transport{
		MaxIdleConns:        cfg.maxIdleConns,
		MaxIdleConnsPerHost: cfg.maxIdleConnsPerHost,
		IdleConnTimeout:     cfg.idleConnTimeout,
		DisableKeepAlives:   cfg.disableKeepAlives,
	}
	if cfg.insecureSkipVerify {
		rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Default{client: &http.Client{
		Transport: rt,
		// Redirects are handled by the executor, which needs to inspect
		// and mutate every hop; the underlying client must not follow them.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

// RoundTrip implements Transport.
func (d *Default) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	// Send through the pool directly: http.Client.Do would parse a 3xx
	// Location itself and fail on an invalid one before the executor sees it.
	resp, err := d.client.Transport.RoundTrip(httpReq)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

var _ Transport = (*Default)(nil)
