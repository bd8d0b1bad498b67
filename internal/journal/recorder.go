package journal

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/store"
)

// Recorder returns store middleware that appends every lifecycle action to j
// after it has been reduced. A DataCleared commits everything up to and
// including itself, since nothing before a clear affects state.
//
// Reduce and append happen under one lock, so the journal order is the
// reduce order and Restore rebuilds the live state. Middleware placed after
// the recorder and store listeners must not dispatch synchronously.
func Recorder(j *Journal, log *zap.Logger) store.Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	var mu sync.Mutex
	return func(_ store.API) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action model.Action) model.Action {
				mu.Lock()
				defer mu.Unlock()

				out := next(action)
				if !model.IsLifecycle(action) {
					return out
				}

				rec, err := lifecycle.Encode(action)
				if err != nil {
					log.Warn("journal: encode action", zap.String("type", action.Type()), zap.Error(err))
					return out
				}
				seq, err := j.Append(rec)
				if err != nil {
					log.Warn("journal: append action", zap.String("type", action.Type()), zap.Error(err))
					return out
				}
				if rec.Type == model.ActionClear {
					if err := j.Commit(seq); err != nil {
						log.Warn("journal: commit", zap.Uint64("seq", seq), zap.Error(err))
					}
				}
				return out
			}
		}
	}
}

// Restore folds every uncommitted record through the lifecycle reducer,
// starting from the initial state.
func Restore(j *Journal) (*model.State, error) {
	state := model.InitialState()
	err := j.Replay(func(seq uint64, rec model.ActionRecord) error {
		action, err := lifecycle.Decode(rec)
		if err != nil {
			return fmt.Errorf("journal: restore seq %d: %w", seq, err)
		}
		state = lifecycle.Reduce(state, action)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
