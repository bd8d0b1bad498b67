package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinytelemetry/wasp/internal/model"
)

// ErrNotLifecycle is returned when encoding an action that does not belong to
// the request lifecycle.
var ErrNotLifecycle = errors.New("lifecycle: not a lifecycle action")

// Encode converts a lifecycle action into its journal record.
func Encode(action model.Action) (model.ActionRecord, error) {
	if !model.IsLifecycle(action) {
		return model.ActionRecord{}, ErrNotLifecycle
	}
	rec := model.ActionRecord{Type: action.Type(), Wasp: true}

	switch action.Type() {
	case model.ActionRequest:
		if a, ok := action.(model.RequestStarted); ok {
			rec.Meta = a.Meta
		}
	case model.ActionReceiveData:
		a, ok := asDataReceived(action)
		if !ok {
			return model.ActionRecord{}, ErrNotLifecycle
		}
		payload, err := json.Marshal(a.Payload)
		if err != nil {
			return model.ActionRecord{}, fmt.Errorf("lifecycle: marshal payload: %w", err)
		}
		rec.Meta = a.Meta
		rec.Payload = payload
		rec.Status = a.Status
		rec.LastUpdated = a.LastUpdated
	case model.ActionReceiveError:
		a, ok := asErrorReceived(action)
		if !ok {
			return model.ActionRecord{}, ErrNotLifecycle
		}
		rec.Meta = a.Meta
		if a.Err != nil {
			rec.Error = a.Err.Error()
		}
		rec.Status = a.Status
		rec.LastUpdated = a.LastUpdated
	case model.ActionClear:
	default:
		return model.ActionRecord{}, ErrNotLifecycle
	}
	return rec, nil
}

// Decode rebuilds a lifecycle action from its journal record. Errors come back
// as plain errors carrying the recorded message.
func Decode(rec model.ActionRecord) (model.Action, error) {
	marker := model.Marker{Wasp: true}
	switch rec.Type {
	case model.ActionRequest:
		return model.RequestStarted{Marker: marker, Meta: rec.Meta}, nil
	case model.ActionReceiveData:
		var payload any
		if len(rec.Payload) > 0 {
			if err := json.Unmarshal(rec.Payload, &payload); err != nil {
				return nil, fmt.Errorf("lifecycle: unmarshal payload: %w", err)
			}
		}
		return model.DataReceived{
			Marker:      marker,
			Meta:        rec.Meta,
			Payload:     payload,
			Status:      rec.Status,
			LastUpdated: rec.LastUpdated,
		}, nil
	case model.ActionReceiveError:
		var err error
		if rec.Error != "" {
			err = errors.New(rec.Error)
		}
		return model.ErrorReceived{
			Marker:      marker,
			Meta:        rec.Meta,
			Err:         err,
			Status:      rec.Status,
			LastUpdated: rec.LastUpdated,
		}, nil
	case model.ActionClear:
		return model.DataCleared{Marker: marker}, nil
	default:
		return nil, fmt.Errorf("lifecycle: unknown record type %q", rec.Type)
	}
}
