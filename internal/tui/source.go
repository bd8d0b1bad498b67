package tui

import (
	"context"

	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/query"
	"github.com/tinytelemetry/wasp/internal/store"
)

// Source is what the dashboard polls.
type Source interface {
	// Fetch issues one request and returns once its lifecycle has settled.
	Fetch(ctx context.Context) error
	State() *model.State
	// Subscribe calls fn with every new state until unsubscribed. fn must
	// not block or dispatch.
	Subscribe(fn func(*model.State)) (unsubscribe func())
	Clear()
	Label() string
}

// Watch repeats one query or mutation against a store-bound client.
type Watch struct {
	Store    *store.Store[*model.State]
	Client   *query.Client
	URL      string
	Init     query.Init
	Mutation bool
}

var _ Source = (*Watch)(nil)

// Fetch runs the request and waits for its dispatches.
func (w *Watch) Fetch(ctx context.Context) error {
	call := w.Client.Query
	if w.Mutation {
		call = w.Client.Mutate
	}
	_, err := call(ctx, w.URL, w.Init, nil)
	w.Client.Wait()
	return err
}

// State returns the store's current lifecycle state.
func (w *Watch) State() *model.State { return w.Store.GetState() }

// Subscribe forwards store state changes to fn.
func (w *Watch) Subscribe(fn func(*model.State)) func() { return w.Store.Subscribe(fn) }

// Clear dispatches DataCleared.
func (w *Watch) Clear() { w.Store.Dispatch(lifecycle.DataCleared()) }

// Label names the watched endpoint.
func (w *Watch) Label() string {
	if w.Mutation {
		return "mutation " + w.URL
	}
	return "query " + w.URL
}
