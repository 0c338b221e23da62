// Package fetch implements the fetch API over net/http. Requests run on
// worker goroutines; completions are posted back onto the session loop.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/loop"
	"github.com/woxQAQ/wbg-host/internal/weburl"
)

// Config controls the client.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		UserAgent:    "wbghost/1.0",
		MaxBodyBytes: 8 << 20,
	}
}

// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// Observer is notified after every request. status is 0 on failure.
type Observer func(method string, status int, elapsed time.Duration, err error)

// Client performs requests on behalf of one session.
type Client struct {
	http     *http.Client
	loop     *loop.Loop
	base     func() string
	config   Config
	logger   *zap.Logger
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver installs a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client. base returns the URL relative requests are
// resolved against.
func NewClient(l *loop.Loop, logger *zap.Logger, cfg Config, base func() string, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		loop:   l,
		base:   base,
		config: cfg,
		logger: logger.With(zap.String("component", "fetch")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements fetch(input). input is a *Request or a URL string. The
// promise resolves with a *Response for any HTTP status and rejects with a
// TypeError on network failure.
func (c *Client) Fetch(ctx context.Context, input any) *loop.Promise {
	req, ok := input.(*Request)
	if !ok {
		var err error
		req, err = NewRequest(jsval.ToString(input), jsval.Undefined)
		if err != nil {
			return c.loop.RejectedWith(err)
		}
	}

	u, err := weburl.ParseWithBase(req.URL, c.base())
	if err != nil {
		return c.loop.RejectedWith(jsval.NewTypeError("Failed to execute 'fetch': Failed to parse URL from " + req.URL))
	}
	if p := u.Protocol(); p != "http:" && p != "https:" {
		return c.loop.RejectedWith(jsval.NewTypeError("Failed to fetch"))
	}
	target := u.Href()

	// Snapshot the request so later guest mutations do not race the worker.
	method := req.Method
	header := req.Headers.HTTP()
	body := append([]byte(nil), req.Body...)

	p := c.loop.NewPromise()
	c.loop.Go(func() func() {
		start := time.Now()
		resp, err := c.do(ctx, method, target, header, body)
		elapsed := time.Since(start)
		if c.observer != nil {
			status := 0
			if resp != nil {
				status = resp.Status
			}
			c.observer(method, status, elapsed, err)
		}

		return func() {
			if err != nil {
				c.logger.Warn("Fetch failed",
					zap.String("method", method),
					zap.String("url", target),
					zap.Error(err))
				p.Reject(jsval.NewTypeError("Failed to fetch"))
				return
			}
			c.logger.Debug("Fetch completed",
				zap.String("method", method),
				zap.String("url", target),
				zap.Int("status", resp.Status),
				zap.Duration("elapsed", elapsed))
			resp.loop = c.loop
			p.Resolve(resp)
		}
	})
	return p
}

func (c *Client) do(ctx context.Context, method, target string, header http.Header, body []byte) (*Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, err
	}
	req.Header = header
	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.config.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultConfig().MaxBodyBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		URL:        resp.Request.URL.String(),
		Redirected: resp.Request.URL.String() != target,
		Headers:    headersFromHTTP(resp.Header),
		body:       data,
	}, nil
}
