package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinytelemetry/wasp/internal/model"
)

func TestRequestStarted(t *testing.T) {
	a := RequestStarted()
	assert.Equal(t, model.ActionRequest, a.Type())
	assert.True(t, a.IsWasp())
	assert.True(t, model.IsLifecycle(a))
}

func TestDataReceived(t *testing.T) {
	a := DataReceived("/foo/bar/", 42, 1)
	assert.Equal(t, model.DataReceived{
		Marker:      model.Marker{Wasp: true},
		Payload:     "/foo/bar/",
		Status:      42,
		LastUpdated: 1,
	}, a)
}

func TestErrorReceived(t *testing.T) {
	err := errors.New("/foo/bar/")
	a := ErrorReceived(err, 42, 1)
	assert.Equal(t, model.ActionReceiveError, a.Type())
	assert.Same(t, err, a.Err)
	assert.Equal(t, 42, a.Status)
	assert.Equal(t, int64(1), a.LastUpdated)
	assert.True(t, a.IsWasp())
}

func TestDataCleared(t *testing.T) {
	a := DataCleared()
	assert.Equal(t, model.ActionClear, a.Type())
	assert.True(t, a.IsWasp())
}

func TestLastUpdatedDefaultsToNow(t *testing.T) {
	restore := Now
	Now = func() int64 { return 1700000000000 }
	t.Cleanup(func() { Now = restore })

	assert.Equal(t, int64(1700000000000), DataReceived(nil, 200).LastUpdated)
	assert.Equal(t, int64(1700000000000), ErrorReceived(nil, 0).LastUpdated)
	assert.Equal(t, int64(1700000000000), DataReceived(nil, 200, 0).LastUpdated)
	assert.Equal(t, int64(5), ErrorReceived(nil, 0, 5).LastUpdated)
}

func TestHostActionIsNotLifecycle(t *testing.T) {
	assert.False(t, model.IsLifecycle(model.Named("@@init")))
}
