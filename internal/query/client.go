// Package query wraps a GraphQL transport call so its lifecycle is reported
// to a store through a binding.
//
// A call dispatches RequestStarted, performs the transport call and returns
// the transport's response as soon as it settles. Parsing the body and
// dispatching DataReceived or ErrorReceived happens on a detached goroutine
// that the caller never waits on; Client.Wait blocks until those finish.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/wasp/internal/binding"
	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/store"
	"github.com/tinytelemetry/wasp/internal/transport"
)

// ErrMissingDispatch is returned when automation is enabled but no action
// has passed through the binding's middleware yet.
var ErrMissingDispatch = errors.New("query: cannot find store dispatch; add the binding middleware to the store before querying")

var errNoResponse = errors.New("query: transport returned no response")

// Operation kinds recorded in action metadata.
const (
	OpQuery    = "query"
	OpMutation = "mutation"
)

// TransformFunc reshapes the decoded JSON body before it reaches the store.
type TransformFunc func(body any) (any, error)

// ErrorPolicy decides how an HTTP response whose body carries a GraphQL
// "errors" array is reported.
type ErrorPolicy int

const (
	// ErrorsAsData dispatches DataReceived with the whole body.
	ErrorsAsData ErrorPolicy = iota
	// ErrorsAsFailure dispatches ErrorReceived with a *GraphQLError.
	ErrorsAsFailure
)

// ParseErrorPolicy maps "data" and "failure" to a policy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "data":
		return ErrorsAsData, nil
	case "failure", "error":
		return ErrorsAsFailure, nil
	default:
		return ErrorsAsData, fmt.Errorf("query: unknown graphql error policy %q", s)
	}
}

// GraphQLError carries the messages of a GraphQL "errors" array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithClock replaces the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithGraphQLErrors sets how GraphQL error arrays are reported.
func WithGraphQLErrors(policy ErrorPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithRequestIDs replaces the request ID generator.
func WithRequestIDs(next func() string) Option {
	return func(c *Client) {
		c.newID = next
	}
}

// Client issues queries and mutations and reports their lifecycle.
type Client struct {
	binding   *binding.Binding
	transport transport.Transport
	log       *zap.Logger
	now       func() time.Time
	policy    ErrorPolicy
	newID     func() string

	pending errgroup.Group
}

// New creates a client. A nil binding disables lifecycle dispatches.
func New(b *binding.Binding, t transport.Transport, opts ...Option) *Client {
	c := &Client{
		binding:   b,
		transport: t,
		log:       zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query sends a GraphQL query. The returned response is the transport's own,
// with its body unread.
func (c *Client) Query(ctx context.Context, url string, init Init, transform TransformFunc) (*transport.Response, error) {
	return c.do(ctx, OpQuery, url, init, transform)
}

// Mutate sends a GraphQL mutation. It behaves exactly like Query.
func (c *Client) Mutate(ctx context.Context, url string, init Init, transform TransformFunc) (*transport.Response, error) {
	return c.do(ctx, OpMutation, url, init, transform)
}

// Wait blocks until every detached dispatch started so far has completed.
// Calls must not start while a Wait is in progress.
func (c *Client) Wait() {
	_ = c.pending.Wait()
}

func (c *Client) do(ctx context.Context, op, url string, init Init, transform TransformFunc) (*transport.Response, error) {
	req, err := Build(url, init)
	if err != nil {
		return nil, err
	}

	if c.binding == nil || !c.binding.Automate() {
		return c.fetch(ctx, url, req)
	}

	dispatch, ok := c.binding.Dispatcher()
	if !ok {
		return nil, ErrMissingDispatch
	}

	meta := model.Meta{RequestID: c.newID(), URL: url, Operation: op}
	started := lifecycle.RequestStarted()
	started.Meta = meta
	dispatch(started)

	c.log.Debug("query: request started",
		zap.String("operation", op),
		zap.String("url", url),
		zap.String("request_id", meta.RequestID),
	)

	resp, err := c.fetch(ctx, url, req)
	if err != nil {
		c.log.Warn("query: transport failed",
			zap.String("request_id", meta.RequestID),
			zap.Error(err),
		)
		c.fail(dispatch, meta, err, 0)
		return nil, err
	}

	clone, err := resp.Clone()
	if err != nil {
		c.fail(dispatch, meta, err, resp.Status)
		return resp, nil
	}

	c.pending.Go(func() error {
		c.settle(dispatch, meta, clone, transform)
		return nil
	})
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, url string, req *transport.Request) (*transport.Response, error) {
	resp, err := c.transport.Fetch(ctx, url, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errNoResponse
	}
	return resp, nil
}

// settle decodes the cloned body and dispatches the terminal action.
func (c *Client) settle(dispatch store.Dispatcher, meta model.Meta, clone *transport.Response, transform TransformFunc) {
	status := clone.Status

	var body any
	if err := clone.JSON(&body); err != nil {
		c.fail(dispatch, meta, err, status)
		return
	}

	if c.policy == ErrorsAsFailure {
		if gqlErr := graphQLErrors(body); gqlErr != nil {
			c.fail(dispatch, meta, gqlErr, status)
			return
		}
	}

	data, err := c.apply(transform, body)
	if err != nil {
		c.fail(dispatch, meta, err, status)
		return
	}

	received := lifecycle.DataReceived(data, status, c.stamp())
	received.Meta = meta
	dispatch(received)

	c.log.Debug("query: data received",
		zap.String("request_id", meta.RequestID),
		zap.Int("status", status),
	)
}

func (c *Client) apply(transform TransformFunc, body any) (data any, err error) {
	if transform == nil {
		return body, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query: transform panicked: %v", r)
		}
	}()
	return transform(body)
}

func (c *Client) fail(dispatch store.Dispatcher, meta model.Meta, err error, status int) {
	failed := lifecycle.ErrorReceived(err, status, c.stamp())
	failed.Meta = meta
	dispatch(failed)
}

func (c *Client) stamp() int64 {
	return c.now().UnixMilli()
}

func graphQLErrors(body any) *GraphQLError {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := obj["errors"].([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	out := &GraphQLError{Messages: make([]string, 0, len(list))}
	for _, item := range list {
		if e, ok := item.(map[string]any); ok {
			if msg, ok := e["message"].(string); ok {
				out.Messages = append(out.Messages, msg)
				continue
			}
		}
		out.Messages = append(out.Messages, fmt.Sprint(item))
	}
	return out
}
