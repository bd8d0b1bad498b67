package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultMaxBodyBytes = 32 << 20

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.timeout = d
	}
}

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) HTTPOption {
	return func(h *HTTP) {
		h.base = base
	}
}

// WithMaxBodyBytes caps how much of a response body is buffered.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(h *HTTP) {
		h.maxBody = n
	}
}

// HTTP is a Transport backed by net/http. Like fetch, it resolves for every
// status code and only fails when no response could be read.
type HTTP struct {
	client  *http.Client
	timeout time.Duration
	base    string
	maxBody int64
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{maxBody: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = &http.Client{}
	}
	if h.timeout > 0 {
		c := *h.client
		c.Timeout = h.timeout
		h.client = &c
	}
	return h
}

// Fetch sends req and buffers the response body.
func (h *HTTP) Fetch(ctx context.Context, rawURL string, req *Request) (*Response, error) {
	target, err := h.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	if int64(len(data)) > h.maxBody {
		return nil, fmt.Errorf("transport: body exceeds %d bytes", h.maxBody)
	}

	out := NewResponse(resp.StatusCode, resp.Header, data)
	out.StatusText = resp.Status
	out.URL = target
	return out, nil
}

func (h *HTTP) resolve(rawURL string) (string, error) {
	if h.base == "" {
		return rawURL, nil
	}
	base, err := url.Parse(h.base)
	if err != nil {
		return "", fmt.Errorf("transport: parse base url: %w", err)
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("transport: parse url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
