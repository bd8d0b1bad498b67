// Package lifecycle holds the request lifecycle action creators and reducer.
package lifecycle

import (
	"time"

	"github.com/tinytelemetry/wasp/internal/model"
)

// Now returns the current time in epoch milliseconds. Tests replace it.
var Now = func() int64 { return time.Now().UnixMilli() }

// RequestStarted runs prior to executing a query.
func RequestStarted() model.RequestStarted {
	return model.RequestStarted{Marker: model.Marker{Wasp: true}}
}

// DataReceived runs when a query succeeds. lastUpdated is optional; when it is
// omitted or zero the current time is used.
func DataReceived(payload any, status int, lastUpdated ...int64) model.DataReceived {
	return model.DataReceived{
		Marker:      model.Marker{Wasp: true},
		Payload:     payload,
		Status:      status,
		LastUpdated: stamp(lastUpdated),
	}
}

// ErrorReceived runs when a query fails. Status is 0 for transport failures.
func ErrorReceived(err error, status int, lastUpdated ...int64) model.ErrorReceived {
	return model.ErrorReceived{
		Marker:      model.Marker{Wasp: true},
		Err:         err,
		Status:      status,
		LastUpdated: stamp(lastUpdated),
	}
}

// DataCleared re-initializes state.
func DataCleared() model.DataCleared {
	return model.DataCleared{Marker: model.Marker{Wasp: true}}
}

func stamp(lastUpdated []int64) int64 {
	if len(lastUpdated) > 0 && lastUpdated[0] != 0 {
		return lastUpdated[0]
	}
	return Now()
}
