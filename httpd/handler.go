// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"context"
	"strings"

	"github.com/z5labs/edge/internal/try"
	"github.com/z5labs/edge/pkg/serverlog"
)

// Handler attempts to handle a request. It reports true if it claimed
// the request, in which case it has written the response.
//
// Returning a [ProtocolError] stops the chain and answers with its status.
// Any other error stops the chain and answers with a 500.
type Handler interface {
	Handle(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) (bool, error)
}

// HandlerFunc is a func implementation of the [Handler] interface.
type HandlerFunc func(context.Context, serverlog.Logger, *Request, *Response) (bool, error)

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) (bool, error) {
	return f(ctx, log, req, resp)
}

// Chain is an ordered list of handlers.
type Chain []Handler

// Dispatch offers req to each handler in order and stops at the first
// which claims it or fails. If no handler claims req, a [ProtocolError]
// with [StatusNotFound] is returned. Handler panics are returned as
// [PanicError]s.
func (c Chain) Dispatch(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) error {
	handled, err := c.Handle(ctx, log, req, resp)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}
	return ProtocolError{
		Status:  StatusNotFound,
		Context: req.URL(),
	}
}

// Handle implements the [Handler] interface so chains can be nested.
// Unlike [Chain.Dispatch] a request which no handler claims is not an error.
func (c Chain) Handle(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) (bool, error) {
	for _, h := range c {
		handled, err := attempt(ctx, h, log, req, resp)
		if err != nil || handled {
			return handled, err
		}
	}
	return false, nil
}

func attempt(ctx context.Context, h Handler, log serverlog.Logger, req *Request, resp *Response) (handled bool, err error) {
	defer try.Recover(&err)

	return h.Handle(ctx, log, req, resp)
}

// Methods only offers requests to h whose method is one of methods.
// Other requests are left for the rest of the chain.
func Methods(h Handler, methods ...Method) Handler {
	return HandlerFunc(func(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) (bool, error) {
		for _, m := range methods {
			if m == req.Method() {
				return h.Handle(ctx, log, req, resp)
			}
		}
		return false, nil
	})
}

// Prefix only offers requests to h whose path starts with prefix.
func Prefix(prefix string, h Handler) Handler {
	return HandlerFunc(func(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) (bool, error) {
		if !strings.HasPrefix(req.URL(), prefix) {
			return false, nil
		}
		return h.Handle(ctx, log, req, resp)
	})
}
