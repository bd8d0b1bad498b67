package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/wasp/internal/httpserver"
	"github.com/tinytelemetry/wasp/internal/sandbox"
)

type cliEnv struct {
	url     string
	journal string
	history string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	schema, err := sandbox.NewSchema()
	require.NoError(t, err)
	srv := httpserver.NewServer("127.0.0.1:0", schema)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return cliEnv{
		url:     srv.URL(),
		journal: filepath.Join(home, "wasp.journal"),
		history: filepath.Join(home, "history.duckdb"),
	}
}

func (e cliEnv) run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--journal-path", e.journal, "--history-db", e.history))
	err := root.Execute()
	return out.Bytes(), err
}

func TestQueryStateHistoryClear(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "query", env.url, "{ author(id: 1) { firstName } }")
	require.NoError(t, err, string(out))

	var res struct {
		Status int `json:"status"`
		Body   struct {
			Data struct {
				Author struct {
					FirstName string `json:"firstName"`
				} `json:"author"`
			} `json:"data"`
		} `json:"body"`
		State struct {
			IsFetching bool `json:"isFetching"`
			Status     *int `json:"status"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(out, &res), string(out))
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "Tom", res.Body.Data.Author.FirstName)
	assert.False(t, res.State.IsFetching)
	require.NotNil(t, res.State.Status)
	assert.Equal(t, 200, *res.State.Status)

	out, err = env.run(t, "state")
	require.NoError(t, err, string(out))
	var state struct {
		Status *int `json:"status"`
		Data   any  `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out, &state), string(out))
	require.NotNil(t, state.Status)
	assert.Equal(t, 200, *state.Status)
	assert.NotNil(t, state.Data)

	out, err = env.run(t, "history")
	require.NoError(t, err, string(out))
	var hist historyOutput
	require.NoError(t, json.Unmarshal(out, &hist), string(out))
	require.Len(t, hist.Requests, 1)
	assert.Equal(t, "query", hist.Requests[0].Operation)
	assert.Equal(t, int64(1), hist.Summary.Total)

	out, err = env.run(t, "clear")
	require.NoError(t, err, string(out))

	out, err = env.run(t, "state")
	require.NoError(t, err, string(out))
	state.Status, state.Data = nil, nil
	require.NoError(t, json.Unmarshal(out, &state), string(out))
	assert.Nil(t, state.Status)
	assert.Nil(t, state.Data)
}

func TestMutateWithVariables(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "mutate", env.url,
		"mutation up($id: Int!) { upvotePost(postId: $id) { votes } }",
		"--var", "id=2", "-o", "yaml")
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "votes: 6")
}

func TestQueryTransportFailure(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "query", "http://127.0.0.1:1/graphql", "{ posts { id } }")
	require.Error(t, err)

	var res struct {
		State struct {
			DidError *bool   `json:"didError"`
			Error    *string `json:"error"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(out, &res), string(out))
	require.NotNil(t, res.State.DidError)
	assert.True(t, *res.State.DidError)
	assert.NotNil(t, res.State.Error)
}

func TestQueryRequiresURL(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "query", "{ posts { id } }")
	assert.Error(t, err)
}

func TestHistoryTextOutput(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "query", env.url, "{ posts { id } }")
	require.NoError(t, err)

	out, err := env.run(t, "history", "-o", "text")
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "OPERATION")
	assert.Contains(t, string(out), "1 requests, 0 errors")
}

func TestHistorySnapshot(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "query", env.url, "{ posts { id } }")
	require.NoError(t, err)

	_, err = env.run(t, "history", "snapshot")
	assert.Error(t, err, "snapshot without a dir should fail")

	dir := filepath.Join(t.TempDir(), "snaps")
	out, err := env.run(t, "history", "snapshot", dir)
	require.NoError(t, err, string(out))
	path := strings.TrimSpace(string(out))
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}
