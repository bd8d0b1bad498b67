// Package binding captures a store's dispatch function so code running
// outside the store can dispatch lifecycle actions.
package binding

import (
	"sync"

	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/store"
)

// Option configures a Binding.
type Option func(*Binding)

// WithAutomate controls whether query clients dispatch lifecycle actions.
// It defaults to true.
func WithAutomate(automate bool) Option {
	return func(b *Binding) {
		b.automate = automate
	}
}

// Binding holds the captured dispatcher. One Binding is created per store and
// passed to every query client that should report into that store.
type Binding struct {
	mu       sync.RWMutex
	dispatch store.Dispatcher
	automate bool
}

// New creates an unbound Binding.
func New(opts ...Option) *Binding {
	b := &Binding{automate: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Middleware records the store's dispatch on every action and forwards the
// action unchanged.
func (b *Binding) Middleware() store.Middleware {
	return func(api store.API) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action model.Action) model.Action {
				b.mu.Lock()
				b.dispatch = api.Dispatch
				b.mu.Unlock()
				return next(action)
			}
		}
	}
}

// Dispatcher returns the captured dispatch function, if any action has
// passed through the middleware yet.
func (b *Binding) Dispatcher() (store.Dispatcher, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dispatch, b.dispatch != nil
}

// Automate reports whether lifecycle dispatches are enabled.
func (b *Binding) Automate() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.automate
}
