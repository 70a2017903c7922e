// Package httpclient builds the outbound HTTP client used for marketplace
// page fetches: bounded redirect following, optional cookie persistence,
// and context-first request execution.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// DefaultTimeout bounds a fetch when the caller does not set one.
const DefaultTimeout = 30 * time.Second

// Config shapes the client.
type Config struct {
	// Timeout bounds the full request/response exchange. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// MaxRedirects caps how many redirects are followed. Negative means
	// redirects are handed back to the caller unfollowed.
	MaxRedirects int

	// UseCookieJar keeps session cookies across requests to the same host.
	UseCookieJar bool
}

// Client executes requests under the configured policies. It wraps a
// single http.Client and is safe for concurrent use.
type Client struct {
	hc *http.Client
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	hc := &http.Client{
		Timeout:       timeout,
		CheckRedirect: redirectPolicy(cfg.MaxRedirects),
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	return &Client{hc: hc}, nil
}

// redirectPolicy follows up to max redirects. Search URLs bounce through
// tracking hops, so a small bounded follow is the normal mode; max < 0
// returns the first redirect response to the caller instead.
func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	if max < 0 {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

// Do executes req under ctx. The context governs cancellation
// independently of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}

	resp, err := c.hc.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}
