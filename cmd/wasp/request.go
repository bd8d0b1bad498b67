package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/wasp/internal/model"
	"github.com/tinytelemetry/wasp/internal/query"
)

type requestFlags struct {
	vars          []string
	body          string
	operationName string
	method        string
}

// requestResult is what query and mutate print.
type requestResult struct {
	Status int        `json:"status" yaml:"status"`
	Body   any        `json:"body" yaml:"body"`
	State  model.View `json:"state" yaml:"state"`
}

func newRequestCmd(a *app, mutation bool) *cobra.Command {
	var rf requestFlags

	use, short := "query [url] <document>", "Send a GraphQL query"
	if mutation {
		use, short = "mutate [url] <document>", "Send a GraphQL mutation"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, document, err := splitArgs(args, a.cfg.Endpoint, rf.body != "")
			if err != nil {
				return err
			}

			sess, err := openSession(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer sess.Close()

			init, err := buildInit(document, rf, sess)
			if err != nil {
				return err
			}

			call := sess.client.Query
			if mutation {
				call = sess.client.Mutate
			}
			resp, err := call(cmd.Context(), url, init, nil)
			sess.client.Wait()

			out := requestResult{State: sess.store.GetState().ToView()}
			if resp != nil {
				out.Status = resp.Status
				raw, rerr := resp.Bytes()
				if rerr != nil {
					return rerr
				}
				out.Body = decodeBody(raw)
			}
			if rerr := render(cmd.OutOrStdout(), a.cfg.Output, out); rerr != nil {
				return rerr
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&rf.vars, "var", nil, "variable as key=value; JSON values are decoded (repeatable)")
	cmd.Flags().StringVar(&rf.body, "body", "", "raw request body sent verbatim")
	cmd.Flags().StringVar(&rf.operationName, "operation-name", "", "operation to run in a multi-operation document")
	cmd.Flags().StringVar(&rf.method, "method", "", "HTTP method (default POST)")
	return cmd
}

// splitArgs resolves url and document from positional args, falling back to
// the configured endpoint when only a document is given.
func splitArgs(args []string, endpoint string, hasBody bool) (url, document string, err error) {
	switch len(args) {
	case 2:
		return args[0], args[1], nil
	case 1:
		if hasBody {
			return args[0], "", nil
		}
		if endpoint == "" {
			return "", "", errors.New("no url given and no endpoint configured")
		}
		return endpoint, args[0], nil
	default:
		if hasBody && endpoint != "" {
			return endpoint, "", nil
		}
		return "", "", errors.New("expected [url] <document>")
	}
}

// buildInit picks the smallest Init that carries everything requested.
func buildInit(document string, rf requestFlags, sess *session) (query.Init, error) {
	vars, err := parseVars(rf.vars)
	if err != nil {
		return nil, err
	}

	plain := rf.body == "" && len(vars) == 0 && rf.operationName == "" && rf.method == "" && len(sess.cfg.Headers) == 0
	if plain {
		return query.RawQuery(document), nil
	}
	return query.Config{
		Fields:        document,
		Body:          rf.body,
		Variables:     vars,
		OperationName: rf.operationName,
		Method:        strings.ToUpper(rf.method),
		Header:        sess.header(),
	}, nil
}

// parseVars decodes key=value pairs. Values that parse as JSON keep their
// JSON type; anything else is a string.
func parseVars(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, raw, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q: want key=value", p)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		vars[k] = v
	}
	return vars, nil
}
