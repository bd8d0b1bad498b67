package lifecycle

import "github.com/tinytelemetry/wasp/internal/model"

// Reduce folds a lifecycle action into a new state. A nil state is treated as
// the initial state. The input is never mutated: handled actions return a new
// record, anything else returns state itself.
func Reduce(state *model.State, action model.Action) *model.State {
	if state == nil {
		state = model.InitialState()
	}
	if action == nil {
		return state
	}

	switch action.Type() {
	case model.ActionClear:
		return model.InitialState()

	case model.ActionRequest:
		next := *state
		next.IsFetching = true
		return &next

	case model.ActionReceiveData:
		a, ok := asDataReceived(action)
		if !ok {
			return state
		}
		next := *state
		next.IsFetching = false
		next.DidError = boolPtr(false)
		next.Error = nil
		next.Status = intPtr(a.Status)
		next.Data = a.Payload
		next.LastUpdated = int64Ptr(a.LastUpdated)
		return &next

	case model.ActionReceiveError:
		a, ok := asErrorReceived(action)
		if !ok {
			return state
		}
		next := *state
		next.IsFetching = false
		next.DidError = boolPtr(true)
		next.Error = a.Err
		next.Status = intPtr(a.Status)
		next.LastUpdated = int64Ptr(a.LastUpdated)
		return &next

	default:
		return state
	}
}

func asDataReceived(action model.Action) (model.DataReceived, bool) {
	switch a := action.(type) {
	case model.DataReceived:
		return a, true
	case *model.DataReceived:
		if a != nil {
			return *a, true
		}
	}
	return model.DataReceived{}, false
}

func asErrorReceived(action model.Action) (model.ErrorReceived, bool) {
	switch a := action.(type) {
	case model.ErrorReceived:
		return a, true
	case *model.ErrorReceived:
		if a != nil {
			return *a, true
		}
	}
	return model.ErrorReceived{}, false
}

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
