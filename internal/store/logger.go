package store

import (
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/wasp/internal/model"
)

// Logger returns middleware that logs every action after it reaches the
// reducer.
func Logger(log *zap.Logger) Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return func(_ API) func(Dispatcher) Dispatcher {
		return func(next Dispatcher) Dispatcher {
			return func(action model.Action) model.Action {
				start := time.Now()
				out := next(action)
				log.Debug("store: dispatched",
					zap.String("type", action.Type()),
					zap.Bool("lifecycle", model.IsLifecycle(action)),
					zap.Duration("took", time.Since(start)),
				)
				return out
			}
		}
	}
}
