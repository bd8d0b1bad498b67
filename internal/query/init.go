package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tinytelemetry/wasp/internal/transport"
)

var (
	// ErrInvalidURL is returned when the url argument is empty.
	ErrInvalidURL = errors.New("query: expected a non-empty string for url")
	// ErrInvalidInit is returned when init is neither a non-empty query
	// string nor a Config with fields or body.
	ErrInvalidInit = errors.New("query: expected a non-empty query string or a config with fields or body")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Init describes what to send. It is either a RawQuery or a Config.
type Init interface {
	isInit()
}

// RawQuery is a bare GraphQL document sent as {"query": ...}.
type RawQuery string

func (RawQuery) isInit() {}

// Config is the full request description. Either Fields or Body must be set;
// Body is sent verbatim and wins over Fields.
type Config struct {
	Fields        string         `validate:"required_without=Body"`
	Body          string         `validate:"required_without=Fields"`
	Variables     map[string]any `validate:"-"`
	OperationName string
	Method        string      `validate:"omitempty,alpha"`
	Header        http.Header `validate:"-"`
}

func (Config) isInit() {}

type envelope struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// DefaultHeader returns the headers sent when the caller supplies none.
func DefaultHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}

// Validate checks url and init without building anything.
func Validate(url string, init Init) error {
	if err := validate.Var(url, "required"); err != nil {
		return ErrInvalidURL
	}
	switch v := init.(type) {
	case RawQuery:
		if err := validate.Var(string(v), "required"); err != nil {
			return fmt.Errorf("%w: empty query string", ErrInvalidInit)
		}
	case Config:
		if err := validate.Struct(v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInit, err)
		}
	case *Config:
		if v == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidInit)
		}
		return Validate(url, *v)
	default:
		return fmt.Errorf("%w: received %T", ErrInvalidInit, init)
	}
	return nil
}

// Build validates url and init and assembles the transport request.
func Build(url string, init Init) (*transport.Request, error) {
	if err := Validate(url, init); err != nil {
		return nil, err
	}
	if p, ok := init.(*Config); ok {
		init = *p
	}

	req := &transport.Request{
		Method: http.MethodPost,
		Header: DefaultHeader(),
	}

	switch v := init.(type) {
	case RawQuery:
		body, err := json.Marshal(envelope{Query: string(v)})
		if err != nil {
			return nil, fmt.Errorf("query: marshal body: %w", err)
		}
		req.Body = body
	case Config:
		if v.Method != "" {
			req.Method = strings.ToUpper(v.Method)
		}
		if len(v.Header) > 0 {
			req.Header = v.Header.Clone()
		}
		if v.Body != "" {
			req.Body = []byte(v.Body)
			break
		}
		body, err := json.Marshal(envelope{
			Query:         v.Fields,
			Variables:     v.Variables,
			OperationName: v.OperationName,
		})
		if err != nil {
			return nil, fmt.Errorf("query: marshal body: %w", err)
		}
		req.Body = body
	}
	return req, nil
}
