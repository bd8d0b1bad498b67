package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/sandbox"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHistory struct {
	records []model.RequestRecord
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]model.RequestRecord, error) {
	f.limit = limit
	return f.records, f.err
}

func (f *fakeHistory) Summary(context.Context) (model.RequestSummary, error) {
	return model.RequestSummary{Total: int64(len(f.records))}, f.err
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *gin.Engine) {
	t.Helper()
	schema, err := sandbox.NewSchema()
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	srv := NewServer("", schema, opts...)
	srv.startTime = time.Now()
	return srv, srv.routes()
}

func postGraphQL(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestGraphQLEndpoint_Query(t *testing.T) {
	_, r := newTestServer(t)

	w := postGraphQL(r, `{"query":"{ author(id: 1) { firstName lastName } }"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("graphql status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body struct {
		Data struct {
			Author struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
			} `json:"author"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal graphql: %v", err)
	}
	if len(body.Errors) != 0 {
		t.Fatalf("graphql errors = %v", body.Errors)
	}
	if body.Data.Author.FirstName != "Tom" || body.Data.Author.LastName != "Stevens" {
		t.Errorf("author = %+v, want Tom Stevens", body.Data.Author)
	}
}

func TestGraphQLEndpoint_Mutation(t *testing.T) {
	_, r := newTestServer(t)

	body := `{"query":"mutation { upvotePost(postId: 2) { votes } }"}`
	postGraphQL(r, body)
	w := postGraphQL(r, body)

	if w.Code != http.StatusOK {
		t.Fatalf("graphql status = %d, want %d", w.Code, http.StatusOK)
	}
	var got struct {
		Data struct {
			UpvotePost struct{ Votes int } `json:"upvotePost"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal graphql: %v", err)
	}
	if got.Data.UpvotePost.Votes != 7 {
		t.Errorf("votes = %d, want 7", got.Data.UpvotePost.Votes)
	}
}

func TestGraphQLEndpoint_InvalidQuery(t *testing.T) {
	_, r := newTestServer(t)

	w := postGraphQL(r, `{"query":"not a query, mate"}`)
	if w.Code != http.StatusOK {
		t.Errorf("graphql status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal graphql: %v", err)
	}
	if body["errors"] == nil {
		t.Errorf("expected errors in %s", w.Body.String())
	}
}

func TestGraphQLEndpoint_WrongMethod(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("graphql GET status = %d, want 405 or 404", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	hist := &fakeHistory{records: []model.RequestRecord{{RequestID: "a", Status: 200}}}
	_, r := newTestServer(t, WithHistory(hist))

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if hist.limit != 5 {
		t.Errorf("limit = %d, want 5", hist.limit)
	}
}

func TestHistoryEndpoint_BadLimit(t *testing.T) {
	_, r := newTestServer(t, WithHistory(&fakeHistory{}))

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=zero", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("history status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHistoryEndpoint_StoreError(t *testing.T) {
	_, r := newTestServer(t, WithHistory(&fakeHistory{err: errors.New("closed")}))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("history status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestHistoryEndpoint_Disabled(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("history status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestStartStop(t *testing.T) {
	schema, err := sandbox.NewSchema()
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	srv := NewServer("127.0.0.1:0", schema)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Post(srv.URL(), "application/json", bytes.NewBufferString(`{"query":"{ posts { id } }"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestGinRecovery(t *testing.T) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic recovery status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
