package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tinytelemetry/wasp/internal/binding"
	"github.com/tinytelemetry/wasp/internal/lifecycle"
	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/store"
	"github.com/tinytelemetry/wasp/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.UnixMilli(1700000000000)

// recorder keeps every lifecycle action that reaches the store.
type recorder struct {
	mu      sync.Mutex
	actions []model.Action
}

func (r *recorder) middleware() store.Middleware {
	return func(store.API) func(store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(a model.Action) model.Action {
				if model.IsLifecycle(a) {
					r.mu.Lock()
					r.actions = append(r.actions, a)
					r.mu.Unlock()
				}
				return next(a)
			}
		}
	}
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Type())
	}
	return out
}

func (r *recorder) last() model.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actions) == 0 {
		return nil
	}
	return r.actions[len(r.actions)-1]
}

// stub is a transport that records what it was asked to send.
type stub struct {
	mu     sync.Mutex
	calls  int
	url    string
	req    *transport.Request
	status int
	body   string
	err    error
}

func (s *stub) Fetch(_ context.Context, url string, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.url = url
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return transport.NewResponse(status, nil, []byte(s.body)), nil
}

func (s *stub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	store  *store.Store[*model.State]
	rec    *recorder
	stub   *stub
	client *Client
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	b := binding.New()
	rec := &recorder{}
	s := store.New(lifecycle.Reduce, model.InitialState(), b.Middleware(), rec.middleware())
	st := &stub{body: `{"data":42}`}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &harness{
		store:  s,
		rec:    rec,
		stub:   st,
		client: New(b, st, opts...),
	}
}

func TestValidationRejects(t *testing.T) {
	cases := []struct {
		name string
		url  string
		init Init
		want error
	}{
		{"no arguments", "", nil, ErrInvalidURL},
		{"empty url", "", RawQuery("{ foo }"), ErrInvalidURL},
		{"empty query string", "/foo", RawQuery(""), ErrInvalidInit},
		{"nil init", "/foo", nil, ErrInvalidInit},
		{"empty config", "/foo", Config{}, ErrInvalidInit},
		{"variables only", "/foo", Config{Variables: map[string]any{"a": 1}}, ErrInvalidInit},
		{"nil config pointer", "/foo", (*Config)(nil), ErrInvalidInit},
		{"non-alphabetic method", "/foo", Config{Fields: "bar", Method: "P0ST"}, ErrInvalidInit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			resp, err := h.client.Query(context.Background(), tc.url, tc.init, nil)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, h.stub.callCount())
			assert.Empty(t, h.rec.types(), "validation failures must not dispatch")
		})
	}
}

func TestRawQueryRequest(t *testing.T) {
	h := newHarness(t)
	fields := "{ foo { bar } }"

	_, err := h.client.Query(context.Background(), "/api/ping", RawQuery(fields), nil)
	require.NoError(t, err)
	h.client.Wait()

	assert.Equal(t, "/api/ping", h.stub.url)
	assert.Equal(t, http.MethodPost, h.stub.req.Method)
	assert.Equal(t, "application/json", h.stub.req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", h.stub.req.Header.Get("Accept"))
	assert.JSONEq(t, `{"query":"{ foo { bar } }"}`, string(h.stub.req.Body))
}

func TestConfigRequest(t *testing.T) {
	t.Run("fields and variables", func(t *testing.T) {
		req, err := Build("/foo", Config{
			Fields:        "query q($id: Int!) { author(id: $id) { id } }",
			Variables:     map[string]any{"id": 1},
			OperationName: "q",
		})
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"query":"query q($id: Int!) { author(id: $id) { id } }","variables":{"id":1},"operationName":"q"}`,
			string(req.Body))
	})

	t.Run("body is sent verbatim", func(t *testing.T) {
		body := `{"query":"{ foo }"}`
		req, err := Build("/foo", Config{Body: body, Fields: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, body, string(req.Body))
	})

	t.Run("method and headers override defaults", func(t *testing.T) {
		req, err := Build("/foo", &Config{
			Fields: "bar",
			Method: http.MethodPut,
			Header: http.Header{"Authorization": {"Bearer x"}},
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "Bearer x", req.Header.Get("Authorization"))
		assert.Empty(t, req.Header.Get("Content-Type"))
	})

	t.Run("method is normalised to upper case", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.client.Query(context.Background(), "/foo", Config{Fields: "bar", Method: "post"}, nil)
		require.NoError(t, err)
		h.client.Wait()

		assert.Equal(t, http.MethodPost, h.stub.req.Method)
		assert.Equal(t, []string{model.ActionRequest, model.ActionReceiveData}, h.rec.types())
	})
}

func TestQueryReturnsUntouchedResponse(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Query(context.Background(), "/foo", Config{Fields: "bar"}, nil)
	require.NoError(t, err)
	h.client.Wait()

	assert.False(t, resp.BodyUsed())
	var body map[string]any
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, 42.0, body["data"])
}

func TestSuccessDispatchesDataReceived(t *testing.T) {
	h := newHarness(t)
	h.stub.status = http.StatusCreated

	_, err := h.client.Query(context.Background(), "/foo", Config{Fields: "bar"}, nil)
	require.NoError(t, err)
	h.client.Wait()

	assert.Equal(t, []string{model.ActionRequest, model.ActionReceiveData}, h.rec.types())

	got, ok := h.rec.last().(model.DataReceived)
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, got.Status)
	assert.Equal(t, map[string]any{"data": 42.0}, got.Payload)
	assert.Equal(t, fixedNow.UnixMilli(), got.LastUpdated)
	assert.Equal(t, OpQuery, got.Operation)
	assert.NotEmpty(t, got.RequestID)

	state := h.store.GetState()
	assert.False(t, state.IsFetching)
	require.NotNil(t, state.Status)
	assert.Equal(t, http.StatusCreated, *state.Status)
	assert.Equal(t, map[string]any{"data": 42.0}, state.Data)
}

func TestActionsShareRequestID(t *testing.T) {
	h := newHarness(t, WithRequestIDs(func() string { return "req-1" }))

	_, err := h.client.Mutate(context.Background(), "/foo", RawQuery("mutation { upvotePost(postId: 1) { id } }"), nil)
	require.NoError(t, err)
	h.client.Wait()

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	require.Len(t, h.rec.actions, 2)
	started := h.rec.actions[0].(model.RequestStarted)
	received := h.rec.actions[1].(model.DataReceived)
	assert.Equal(t, model.Meta{RequestID: "req-1", URL: "/foo", Operation: OpMutation}, started.Meta)
	assert.Equal(t, started.Meta, received.Meta)
}

func TestTransformIsApplied(t *testing.T) {
	h := newHarness(t)

	pick := func(body any) (any, error) {
		return body.(map[string]any)["data"], nil
	}
	_, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), pick)
	require.NoError(t, err)
	h.client.Wait()

	assert.Equal(t, 42.0, h.store.GetState().Data)
}

func TestTransformFailureDispatchesError(t *testing.T) {
	boom := errors.New("boom")
	for name, fn := range map[string]TransformFunc{
		"error": func(any) (any, error) { return nil, boom },
		"panic": func(any) (any, error) { panic("kaboom") },
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			resp, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), fn)
			require.NoError(t, err, "transform failures never reach the caller")
			require.NotNil(t, resp)
			h.client.Wait()

			failed, ok := h.rec.last().(model.ErrorReceived)
			require.True(t, ok)
			assert.Equal(t, http.StatusOK, failed.Status)
			assert.Error(t, failed.Err)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.stub.err = errors.New("connection refused")

	resp, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, h.stub.err)

	assert.Equal(t, []string{model.ActionRequest, model.ActionReceiveError}, h.rec.types())
	failed := h.rec.last().(model.ErrorReceived)
	assert.Equal(t, 0, failed.Status)
	assert.Same(t, h.stub.err, failed.Err)

	state := h.store.GetState()
	assert.False(t, state.IsFetching)
	require.NotNil(t, state.DidError)
	assert.True(t, *state.DidError)
}

func TestNonJSONBodyDispatchesError(t *testing.T) {
	h := newHarness(t)
	h.stub.status = http.StatusBadGateway
	h.stub.body = "<html>bad gateway</html>"

	resp, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	h.client.Wait()

	failed, ok := h.rec.last().(model.ErrorReceived)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, failed.Status)

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "<html>bad gateway</html>", text)
}

func TestMissingDispatch(t *testing.T) {
	st := &stub{body: `{}`}
	c := New(binding.New(), st)

	_, err := c.Query(context.Background(), "/foo", Config{Fields: "bar"}, nil)
	assert.ErrorIs(t, err, ErrMissingDispatch)
	assert.Zero(t, st.callCount())
}

func TestAutomateDisabled(t *testing.T) {
	st := &stub{body: `{"data":42}`}
	c := New(binding.New(binding.WithAutomate(false)), st)

	resp, err := c.Query(context.Background(), "/foo", Config{Fields: "bar"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, st.callCount())

	var body map[string]any
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, 42.0, body["data"])

	st.err = errors.New("down")
	_, err = New(nil, st).Query(context.Background(), "/foo", RawQuery("{ x }"), nil)
	assert.ErrorIs(t, err, st.err)
}

func TestEndpointCurrying(t *testing.T) {
	direct := newHarness(t)
	_, err := direct.client.Query(context.Background(), "/foo", Config{Fields: "bar"}, nil)
	require.NoError(t, err)
	direct.client.Wait()

	curried := newHarness(t)
	ep := curried.client.Endpoint("/foo")
	assert.Equal(t, "/foo", ep.URL())

	resp, err := ep.Query(context.Background(), Config{Fields: "bar"}, nil)
	require.NoError(t, err)
	curried.client.Wait()

	assert.Equal(t, direct.stub.url, curried.stub.url)
	assert.Equal(t, direct.stub.req, curried.stub.req)
	assert.Equal(t, direct.rec.types(), curried.rec.types())

	var body map[string]any
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, 42.0, body["data"])

	_, err = ep.Query(context.Background(), RawQuery(""), nil)
	assert.ErrorIs(t, err, ErrInvalidInit, "each call validates init")

	_, err = curried.client.Endpoint("").Mutate(context.Background(), RawQuery("{ x }"), nil)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestQueryDoesNotWaitForDispatch(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	slow := func(body any) (any, error) {
		close(entered)
		<-release
		return body, nil
	}

	resp, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), slow)
	require.NoError(t, err)
	require.NotNil(t, resp)

	<-entered
	assert.True(t, h.store.GetState().IsFetching, "caller sees the response before the store settles")
	assert.Equal(t, []string{model.ActionRequest}, h.rec.types())

	close(release)
	h.client.Wait()
	assert.False(t, h.store.GetState().IsFetching)
	assert.Equal(t, []string{model.ActionRequest, model.ActionReceiveData}, h.rec.types())
}

func TestGraphQLErrorPolicy(t *testing.T) {
	body := `{"data":null,"errors":[{"message":"Cannot query field \"nope\""},{"message":"second"}]}`

	t.Run("as data", func(t *testing.T) {
		h := newHarness(t)
		h.stub.body = body
		_, err := h.client.Query(context.Background(), "/foo", RawQuery("{ nope }"), nil)
		require.NoError(t, err)
		h.client.Wait()

		received, ok := h.rec.last().(model.DataReceived)
		require.True(t, ok)
		var want any
		require.NoError(t, json.Unmarshal([]byte(body), &want))
		assert.Equal(t, want, received.Payload)
	})

	t.Run("as failure", func(t *testing.T) {
		h := newHarness(t, WithGraphQLErrors(ErrorsAsFailure))
		h.stub.body = body
		resp, err := h.client.Query(context.Background(), "/foo", RawQuery("{ nope }"), nil)
		require.NoError(t, err)
		h.client.Wait()

		failed, ok := h.rec.last().(model.ErrorReceived)
		require.True(t, ok)
		var gqlErr *GraphQLError
		require.ErrorAs(t, failed.Err, &gqlErr)
		assert.Equal(t, []string{`Cannot query field "nope"`, "second"}, gqlErr.Messages)
		assert.Equal(t, http.StatusOK, failed.Status)
		assert.False(t, resp.BodyUsed())
	})

	t.Run("no errors stays data", func(t *testing.T) {
		h := newHarness(t, WithGraphQLErrors(ErrorsAsFailure))
		_, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), nil)
		require.NoError(t, err)
		h.client.Wait()
		assert.Equal(t, model.ActionReceiveData, h.rec.last().Type())
	})
}

func TestParseErrorPolicy(t *testing.T) {
	for in, want := range map[string]ErrorPolicy{"": ErrorsAsData, "data": ErrorsAsData, "Failure": ErrorsAsFailure, "error": ErrorsAsFailure} {
		got, err := ParseErrorPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseErrorPolicy("sometimes")
	assert.Error(t, err)
}

func TestConcurrentQueries(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.client.Query(context.Background(), "/foo", RawQuery("{ x }"), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	h.client.Wait()

	assert.Len(t, h.rec.types(), 40)
	assert.False(t, h.store.GetState().IsFetching)
}
