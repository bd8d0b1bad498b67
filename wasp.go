// Package wasp reports the lifecycle of GraphQL requests into a Redux-style
// store.
//
// A store built with NewStore carries a binding middleware. Clients created
// from that binding dispatch RequestStarted before each call and DataReceived
// or ErrorReceived once the response body has been decoded, so the store's
// State always reflects the latest request.
//
//	st, b := wasp.NewStore()
//	client := wasp.NewClient(b, wasp.NewHTTPTransport())
//	resp, err := client.Query(ctx, "https://example.com/graphql", wasp.RawQuery("{ posts { id } }"), nil)
//	client.Wait()
//	state := st.GetState()
package wasp

import (
	"github.com/tinytelemetry/wasp/internal/binding"
	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/query"
	"github.com/tinytelemetry/wasp/internal/store"
	"github.com/tinytelemetry/wasp/internal/transport"
)

type (
	State                = model.State
	Action               = model.Action
	Meta                 = model.Meta
	RequestStartedAction = model.RequestStarted
	DataReceivedAction   = model.DataReceived
	ErrorReceivedAction  = model.ErrorReceived
	DataClearedAction    = model.DataCleared
	Binding              = binding.Binding
	BindingOption        = binding.Option
	Store                = store.Store[*model.State]
	Middleware           = store.Middleware
	Dispatcher           = store.Dispatcher
	StoreAPI             = store.API
	Client               = query.Client
	ClientOption         = query.Option
	Endpoint             = query.Endpoint
	Init                 = query.Init
	RawQuery             = query.RawQuery
	Config               = query.Config
	TransformFunc        = query.TransformFunc
	ErrorPolicy          = query.ErrorPolicy
	GraphQLError         = query.GraphQLError
	Transport            = transport.Transport
	TransportFunc        = transport.Func
	Request              = transport.Request
	Response             = transport.Response
)

// Action types.
const (
	ActionRequest      = model.ActionRequest
	ActionReceiveData  = model.ActionReceiveData
	ActionReceiveError = model.ActionReceiveError
	ActionClear        = model.ActionClear
)

// GraphQL error policies.
const (
	ErrorsAsData    = query.ErrorsAsData
	ErrorsAsFailure = query.ErrorsAsFailure
)

var (
	ErrInvalidURL      = query.ErrInvalidURL
	ErrInvalidInit     = query.ErrInvalidInit
	ErrMissingDispatch = query.ErrMissingDispatch
	ErrBodyUsed        = transport.ErrBodyUsed
)

var (
	InitialState   = model.InitialState
	RequestStarted = lifecycle.RequestStarted
	DataReceived   = lifecycle.DataReceived
	ErrorReceived  = lifecycle.ErrorReceived
	DataCleared    = lifecycle.DataCleared
	Reduce         = lifecycle.Reduce

	NewBinding   = binding.New
	WithAutomate = binding.WithAutomate

	NewClient         = query.New
	WithLogger        = query.WithLogger
	WithClock         = query.WithClock
	WithGraphQLErrors = query.WithGraphQLErrors
	NewResponse       = transport.NewResponse
	JSONResponse      = transport.JSONResponse
	NewHTTPTransport  = transport.NewHTTP
	WithHTTPTimeout   = transport.WithTimeout
	WithHTTPClient    = transport.WithHTTPClient
)

// NewStore creates a lifecycle store whose outermost middleware is a fresh
// binding. Extra middleware runs inside the binding in the order given.
func NewStore(middleware ...Middleware) (*Store, *Binding) {
	return NewStoreWith(binding.New(), middleware...)
}

// NewStoreWith is NewStore with a caller-supplied binding.
func NewStoreWith(b *Binding, middleware ...Middleware) (*Store, *Binding) {
	chain := append([]store.Middleware{b.Middleware()}, middleware...)
	return store.New(lifecycle.Reduce, model.InitialState(), chain...), b
}
