package query

import (
	"context"

	"github.com/tinytelemetry/wasp/internal/transport"
)

// Endpoint is a client bound to one url. Every call validates its init
// independently.
type Endpoint struct {
	client *Client
	url    string
}

// Endpoint returns a reusable caller for url.
func (c *Client) Endpoint(url string) *Endpoint {
	return &Endpoint{client: c, url: url}
}

// URL returns the bound url.
func (e *Endpoint) URL() string { return e.url }

// Query is Client.Query with the bound url.
func (e *Endpoint) Query(ctx context.Context, init Init, transform TransformFunc) (*transport.Response, error) {
	return e.client.Query(ctx, e.url, init, transform)
}

// Mutate is Client.Mutate with the bound url.
func (e *Endpoint) Mutate(ctx context.Context, init Init, transform TransformFunc) (*transport.Response, error) {
	return e.client.Mutate(ctx, e.url, init, transform)
}
