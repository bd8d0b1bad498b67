package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/store"
)

// RecorderOption configures Recorder.
type RecorderOption func(*recorder)

// WithRecorderLogger logs insert failures to log.
func WithRecorderLogger(log *zap.Logger) RecorderOption {
	return func(r *recorder) {
		r.log = log
	}
}

// WithRecorderClock replaces the time source used for start and finish times.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *recorder) {
		r.now = now
	}
}

type inflight struct {
	url       string
	operation string
	startedAt time.Time
}

type recorder struct {
	w       model.HistoryWriter
	log     *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	pending map[string]inflight
}

// Recorder returns store middleware that pairs each RequestStarted with the
// terminal action carrying the same request ID and writes one record per
// pair to w. Actions without a request ID are not recorded.
func Recorder(w model.HistoryWriter, opts ...RecorderOption) store.Middleware {
	r := &recorder{
		w:       w,
		log:     zap.NewNop(),
		now:     time.Now,
		pending: make(map[string]inflight),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Held across reduce and observe so a clear cannot overtake a start
	// that was reduced before it.
	var order sync.Mutex
	return func(_ store.API) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(action model.Action) model.Action {
				order.Lock()
				defer order.Unlock()

				out := next(action)
				r.observe(action)
				return out
			}
		}
	}
}

func (r *recorder) observe(action model.Action) {
	switch a := action.(type) {
	case model.RequestStarted:
		r.start(a.Meta)
	case *model.RequestStarted:
		r.start(a.Meta)
	case model.DataReceived:
		r.finish(a.Meta, a.Status, nil)
	case *model.DataReceived:
		r.finish(a.Meta, a.Status, nil)
	case model.ErrorReceived:
		r.finish(a.Meta, a.Status, orUnknown(a.Err))
	case *model.ErrorReceived:
		r.finish(a.Meta, a.Status, orUnknown(a.Err))
	case model.DataCleared, *model.DataCleared:
		r.mu.Lock()
		clear(r.pending)
		r.mu.Unlock()
	}
}

func (r *recorder) start(meta model.Meta) {
	if meta.RequestID == "" {
		return
	}
	r.mu.Lock()
	r.pending[meta.RequestID] = inflight{url: meta.URL, operation: meta.Operation, startedAt: r.now()}
	r.mu.Unlock()
}

func (r *recorder) finish(meta model.Meta, status int, failure error) {
	if meta.RequestID == "" {
		return
	}
	r.mu.Lock()
	fl, ok := r.pending[meta.RequestID]
	delete(r.pending, meta.RequestID)
	r.mu.Unlock()
	if !ok {
		return
	}

	finished := r.now()
	rec := model.RequestRecord{
		RequestID:  meta.RequestID,
		URL:        fl.url,
		Operation:  fl.operation,
		Status:     status,
		DidError:   failure != nil,
		StartedAt:  fl.startedAt.UnixMilli(),
		FinishedAt: finished.UnixMilli(),
		DurationMs: max(finished.Sub(fl.startedAt).Milliseconds(), 0),
	}
	if failure != nil {
		rec.Error = failure.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), model.DefaultRequestTimeout)
	defer cancel()
	if err := r.w.InsertRequest(ctx, rec); err != nil {
		r.log.Warn("history: record request",
			zap.String("request_id", rec.RequestID),
			zap.Error(err),
		)
	}
}

type unknownError struct{}

func (unknownError) Error() string { return "unknown error" }

func orUnknown(err error) error {
	if err == nil {
		return unknownError{}
	}
	return err
}
