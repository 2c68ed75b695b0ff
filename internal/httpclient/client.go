// Package httpclient provides a uniform GET/POST wrapper for outbound HTTP calls.
// Every call carries a fixed timeout and transport failures are classified into
// the upstream error taxonomy (timeout vs. connection failure).
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// MediaType returns the lowercased media type of the Content-Type header without parameters.
func (r *Response) MediaType() string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}

// Err returns an *errors.UpstreamError carrying the raw body when the status is not 2xx.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &apperrors.UpstreamError{StatusCode: r.StatusCode, Body: string(r.Body)}
}

// Client issues outbound HTTP calls with a per-call timeout and optional pacing.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit paces outbound calls to rps requests per second with the given burst.
// A non-positive rps leaves calls unpaced.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client applying timeout to every call.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, header)
}

// Post issues a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, url string, body any, header http.Header) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}

	return c.Do(ctx, http.MethodPost, url, bytes.NewReader(payload), h)
}

// Do issues a request and reads the whole response body within the call timeout.
// Non-2xx responses are returned without error; use Response.Err to treat them as failures.
func (c *Client) Do(
	ctx context.Context,
	method, url string,
	body io.Reader,
	header http.Header,
) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(method, url, err)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request %s %s: %w", apperrors.ErrInvalidInput, method, url, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(method, url, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// classify maps a transport failure onto the upstream error taxonomy.
func classify(method, url string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s: %w", apperrors.ErrUpstreamTimeout, method, url, err)
	}
	return fmt.Errorf("%w: %s %s: %w", apperrors.ErrUpstreamUnavailable, method, url, err)
}
