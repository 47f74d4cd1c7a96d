// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/z5labs/edge/pkg/serverlog"

	"github.com/stretchr/testify/assert"
)

func recordingHandler(calls *[]string, name string, handled bool, err error) Handler {
	return HandlerFunc(func(_ context.Context, _ serverlog.Logger, _ *Request, resp *Response) (bool, error) {
		*calls = append(*calls, name)
		if handled {
			resp.Write(name)
		}
		return handled, err
	})
}

func TestChain_Dispatch(t *testing.T) {
	req := &Request{method: MethodGet, url: "/things"}

	t.Run("will stop at the first handler which claims the request", func(t *testing.T) {
		var calls []string
		chain := Chain{
			recordingHandler(&calls, "a", false, nil),
			recordingHandler(&calls, "b", true, nil),
			recordingHandler(&calls, "c", true, nil),
		}

		var buf bytes.Buffer
		err := chain.Dispatch(context.Background(), serverlog.Noop{}, req, NewResponse(&buf))
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, []string{"a", "b"}, calls) {
			return
		}
		if !assert.Contains(t, buf.String(), "\r\n\r\nb\r\n") {
			return
		}
	})

	t.Run("will return a not found protocol error", func(t *testing.T) {
		t.Run("if there are no handlers", func(t *testing.T) {
			err := Chain{}.Dispatch(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))

			var perr ProtocolError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, StatusNotFound, perr.Status) {
				return
			}
			if !assert.Equal(t, "/things", perr.Context) {
				return
			}
		})

		t.Run("if no handler claims the request", func(t *testing.T) {
			var calls []string
			chain := Chain{
				recordingHandler(&calls, "a", false, nil),
				recordingHandler(&calls, "b", false, nil),
			}

			err := chain.Dispatch(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))

			status, ok := StatusOf(err)
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, StatusNotFound, status) {
				return
			}
			if !assert.Equal(t, []string{"a", "b"}, calls) {
				return
			}
		})
	})

	t.Run("will stop the chain and return the error", func(t *testing.T) {
		t.Run("if a handler returns a protocol error", func(t *testing.T) {
			var calls []string
			forbidden := ProtocolError{Status: StatusForbidden, Context: "/things"}
			chain := Chain{
				recordingHandler(&calls, "a", false, forbidden),
				recordingHandler(&calls, "b", true, nil),
			}

			err := chain.Dispatch(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))
			if !assert.Equal(t, forbidden, err) {
				return
			}
			if !assert.Equal(t, []string{"a"}, calls) {
				return
			}
		})

		t.Run("if a handler returns any other error", func(t *testing.T) {
			var calls []string
			handlerErr := errors.New("failed")
			chain := Chain{
				recordingHandler(&calls, "a", true, handlerErr),
				recordingHandler(&calls, "b", true, nil),
			}

			err := chain.Dispatch(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))
			if !assert.ErrorIs(t, err, handlerErr) {
				return
			}

			status, ok := StatusOf(err)
			if !assert.False(t, ok) {
				return
			}
			if !assert.Equal(t, StatusInternalServerError, status) {
				return
			}
			if !assert.Equal(t, []string{"a"}, calls) {
				return
			}
		})

		t.Run("if a handler panics", func(t *testing.T) {
			var calls []string
			chain := Chain{
				HandlerFunc(func(context.Context, serverlog.Logger, *Request, *Response) (bool, error) {
					panic("handler exploded")
				}),
				recordingHandler(&calls, "b", true, nil),
			}

			err := chain.Dispatch(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))

			var perr PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "handler exploded", perr.Value) {
				return
			}
			if !assert.Empty(t, calls) {
				return
			}
		})
	})
}

func TestMethods(t *testing.T) {
	testCases := []struct {
		Name    string
		Method  Method
		Allowed []Method
		Handled bool
	}{
		{
			Name:    "matching method",
			Method:  MethodGet,
			Allowed: []Method{MethodGet},
			Handled: true,
		},
		{
			Name:    "one of many methods",
			Method:  MethodPost,
			Allowed: []Method{MethodGet, MethodPost},
			Handled: true,
		},
		{
			Name:    "other method",
			Method:  MethodPost,
			Allowed: []Method{MethodGet},
			Handled: false,
		},
		{
			Name:    "no methods",
			Method:  MethodGet,
			Handled: false,
		},
	}

	for _, testCase := range testCases {
		tc := testCase
		t.Run(tc.Name, func(t *testing.T) {
			var calls []string
			h := Methods(recordingHandler(&calls, "inner", true, nil), tc.Allowed...)

			req := &Request{method: tc.Method, url: "/"}
			handled, err := h.Handle(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, tc.Handled, handled) {
				return
			}
			if !assert.Equal(t, tc.Handled, len(calls) == 1) {
				return
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	testCases := []struct {
		Name    string
		Prefix  string
		Path    string
		Handled bool
	}{
		{Name: "exact path", Prefix: "/api", Path: "/api", Handled: true},
		{Name: "nested path", Prefix: "/api/", Path: "/api/items", Handled: true},
		{Name: "other path", Prefix: "/api/", Path: "/static/app.js", Handled: false},
		{Name: "empty prefix", Prefix: "", Path: "/anything", Handled: true},
	}

	for _, testCase := range testCases {
		tc := testCase
		t.Run(tc.Name, func(t *testing.T) {
			var calls []string
			h := Prefix(tc.Prefix, recordingHandler(&calls, "inner", true, nil))

			req := &Request{method: MethodGet, url: tc.Path}
			handled, err := h.Handle(context.Background(), serverlog.Noop{}, req, NewResponse(&bytes.Buffer{}))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, tc.Handled, handled) {
				return
			}
		})
	}
}
