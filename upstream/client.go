// Package upstream is the HTTP plumbing shared by the identity backend
// adapters. Every call is bounded by a timeout, reads at most 1MB of response
// body and converts non 2xx responses into error envelopes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/internal/metrics"
)

const (
	defaultTimeout      = 10 * time.Second
	maxResponseBodySize = 1 << 20
)

// ErrorMapper converts a non successful response into an envelope.
type ErrorMapper func(apperrors.Failure) *apperrors.Envelope

// Client talks to one identity backend.
type Client struct {
	backend    string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	mapError   ErrorMapper
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every call made through the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client for the backend rooted at baseURL. backend labels
// logs and metrics.
func New(backend, baseURL string, mapError ErrorMapper, opts ...Option) *Client {
	c := &Client{
		backend:    backend,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		mapError:   mapError,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Backend() string {
	return c.backend
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// Request describes one upstream call. At most one of Form and JSON is set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	JSON   any
	Header http.Header
	Bearer string
}

// Response is a fully read upstream response.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Cookies []*http.Cookie
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperrors.Internalf("[Response.Decode] invalid upstream body: %v", err)
	}
	return nil
}

// Do performs req. When the backend answers with a non 2xx status, both the
// response and the mapped envelope are returned so callers can read fields
// carried by particular error bodies.
func (c *Client) Do(ctx context.Context, operation string, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, apperrors.Internalf("[Client.Do] %s: %v", operation, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(ctx, operation, start, "transport_error")
		return nil, apperrors.FromTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		c.observe(ctx, operation, start, "transport_error")
		return nil, apperrors.FromTransport(err)
	}

	out := &Response{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    body,
		Cookies: resp.Cookies(),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(ctx, operation, start, "error")
		return out, c.mapError(apperrors.Failure{Status: resp.StatusCode, Body: body})
	}
	c.observe(ctx, operation, start, "ok")
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	target := c.URL(req.Path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}
	return httpReq, nil
}

func (c *Client) observe(ctx context.Context, operation string, start time.Time, outcome string) {
	took := time.Since(start)
	metrics.ObserveUpstream(c.backend, operation, outcome, took)
	logger.From(ctx).Debug().
		Str("backend", c.backend).
		Str("operation", operation).
		Str("outcome", outcome).
		Dur("took", took).
		Msg("upstream call")
}
