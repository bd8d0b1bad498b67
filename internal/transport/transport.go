// Package transport performs the network call behind a query. Responses keep
// their body in memory but expose it as a single-read value, so a caller that
// wants to inspect it twice must Clone first.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrBodyUsed is returned when a response body is read a second time.
var ErrBodyUsed = errors.New("transport: body already used")

// Request is the outgoing request description.
type Request struct {
	Method string
	Header http.Header
	Body   []byte
}

// Transport performs a request against url.
type Transport interface {
	Fetch(ctx context.Context, url string, req *Request) (*Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, url string, req *Request) (*Response, error)

func (f Func) Fetch(ctx context.Context, url string, req *Request) (*Response, error) {
	return f(ctx, url, req)
}

// Response is a settled response with a single-read body.
type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	URL        string

	mu   sync.Mutex
	body []byte
	used bool
}

// NewResponse builds a response around an already read body.
func NewResponse(status int, header http.Header, body []byte) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{
		Status:     status,
		StatusText: http.StatusText(status),
		Header:     header,
		body:       body,
	}
}

// JSONResponse is a convenience for stubs: it marshals v as the body.
func JSONResponse(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal body: %w", err)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return NewResponse(status, h, body), nil
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// BodyUsed reports whether the body has been consumed.
func (r *Response) BodyUsed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Clone duplicates a response whose body has not been read yet.
func (r *Response) Clone() (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used {
		return nil, ErrBodyUsed
	}
	body := make([]byte, len(r.body))
	copy(body, r.body)
	return &Response{
		Status:     r.Status,
		StatusText: r.StatusText,
		Header:     r.Header.Clone(),
		URL:        r.URL,
		body:       body,
	}, nil
}

// Bytes consumes the body.
func (r *Response) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used {
		return nil, ErrBodyUsed
	}
	r.used = true
	return r.body, nil
}

// Text consumes the body as a string.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// JSON consumes the body and decodes it into v.
func (r *Response) JSON(v any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("transport: decode json: %w", err)
	}
	return nil
}
