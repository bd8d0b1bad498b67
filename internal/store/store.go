// Package store is a minimal Redux-style state container with a middleware
// chain. It plays the host store for the request lifecycle reducer.
package store

import (
	"sync"

	"github.com/tinytelemetry/wasp/internal/model"
)

// Init is dispatched through the full chain when a store is created.
const Init = model.Named("@@wasp/INIT")

// Dispatcher sends an action into the store and returns it.
type Dispatcher func(model.Action) model.Action

// Reducer folds an action into the store state.
type Reducer[S any] func(S, model.Action) S

// API is the view of the store handed to middleware.
type API interface {
	Dispatch(model.Action) model.Action
	GetState() any
}

// Middleware wraps the dispatch chain. The first middleware passed to New is
// the outermost.
type Middleware func(api API) func(next Dispatcher) Dispatcher

// Store holds state of type S.
type Store[S any] struct {
	mu       sync.Mutex
	reducer  Reducer[S]
	state    S
	dispatch Dispatcher

	// notifyMu is taken before mu is released so listeners observe
	// states in reduce order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[uint64]func(S)
	nextSub  uint64
}

// New creates a store and dispatches Init through the middleware chain.
func New[S any](reducer Reducer[S], initial S, middleware ...Middleware) *Store[S] {
	s := &Store[S]{
		reducer: reducer,
		state:   initial,
		subs:    make(map[uint64]func(S)),
	}
	s.dispatch = s.reduce

	api := storeAPI[S]{s: s}
	chain := Dispatcher(s.reduce)
	for i := len(middleware) - 1; i >= 0; i-- {
		chain = middleware[i](api)(chain)
	}
	s.dispatch = chain

	s.Dispatch(Init)
	return s
}

// Dispatch sends an action through the middleware chain to the reducer.
// It is safe for concurrent use.
func (s *Store[S]) Dispatch(action model.Action) model.Action {
	return s.dispatch(action)
}

// GetState returns the current state.
func (s *Store[S]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called with the new state after every
// dispatch, in the order the states were reduced. fn runs on the
// dispatching goroutine and must not dispatch synchronously. The returned
// func removes the subscription.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store[S]) reduce(action model.Action) model.Action {
	s.mu.Lock()
	s.state = s.reducer(s.state, action)
	state := s.state
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	listeners := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
	return action
}

type storeAPI[S any] struct{ s *Store[S] }

func (a storeAPI[S]) Dispatch(action model.Action) model.Action { return a.s.Dispatch(action) }
func (a storeAPI[S]) GetState() any                             { return a.s.GetState() }
