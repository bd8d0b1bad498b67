package model

import "encoding/json"

// Lifecycle action types. The @@wasp prefix keeps them clear of host actions.
const (
	ActionRequest      = "@@wasp/REQUEST_GRAPHQL_DATA"
	ActionReceiveData  = "@@wasp/RECEIVE_GRAPHQL_DATA"
	ActionReceiveError = "@@wasp/RECEIVE_GRAPHQL_ERROR"
	ActionClear        = "@@wasp/CLEAR_GRAPHQL_DATA"
)

// Action is anything a store can dispatch.
type Action interface {
	Type() string
}

// Named is a bare host action identified only by its type.
type Named string

func (n Named) Type() string { return string(n) }

// Marker flags an action as belonging to the request lifecycle.
type Marker struct {
	Wasp bool `json:"@@wasp"`
}

// IsWasp reports whether the marker is set.
func (m Marker) IsWasp() bool { return m.Wasp }

// Tagged is implemented by every lifecycle action.
type Tagged interface {
	Action
	IsWasp() bool
}

// IsLifecycle reports whether a carries the lifecycle marker.
func IsLifecycle(a Action) bool {
	t, ok := a.(Tagged)
	return ok && t.IsWasp()
}

// Meta correlates the actions of a single request. It is empty for actions
// built outside the query client.
type Meta struct {
	RequestID string `json:"requestId,omitempty"`
	URL       string `json:"url,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// RequestStarted is dispatched before the transport is called.
type RequestStarted struct {
	Marker
	Meta
}

func (RequestStarted) Type() string { return ActionRequest }

// DataReceived carries a successful (possibly transformed) response body.
type DataReceived struct {
	Marker
	Meta
	Payload     any
	Status      int
	LastUpdated int64
}

func (DataReceived) Type() string { return ActionReceiveData }

// ErrorReceived carries a transport or body failure. Status is 0 when the
// transport itself failed.
type ErrorReceived struct {
	Marker
	Meta
	Err         error
	Status      int
	LastUpdated int64
}

func (ErrorReceived) Type() string { return ActionReceiveError }

// DataCleared resets the lifecycle state.
type DataCleared struct {
	Marker
}

func (DataCleared) Type() string { return ActionClear }

// ActionRecord is the serialisable form of a lifecycle action.
type ActionRecord struct {
	Type        string          `json:"type"`
	Wasp        bool            `json:"@@wasp"`
	Meta        Meta            `json:"meta"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	Status      int             `json:"status,omitempty"`
	LastUpdated int64           `json:"lastUpdated,omitempty"`
}
