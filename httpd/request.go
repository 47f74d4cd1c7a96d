// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Method is an HTTP request method supported by the server.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
)

// String returns the method token as it appears on the wire.
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses s case-insensitively.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToUpper(s) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	default:
		return 0, false
	}
}

// Request is a parsed HTTP request. It is never modified after parsing;
// every accessor returning a map or slice returns a copy.
type Request struct {
	method   Method
	url      string
	params   map[string]string
	headers  map[string]string
	version  string
	body     []byte
	bodySize int64
}

// Method returns the request method.
func (r *Request) Method() Method {
	return r.method
}

// URL returns the decoded request path without its query.
func (r *Request) URL() string {
	return r.url
}

// Param returns the decoded query parameter with the given name.
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Params returns a copy of all decoded query parameters.
func (r *Request) Params() map[string]string {
	return copyMap(r.params)
}

// Header returns the value of the header with the given name.
// Names are matched exactly as they were received.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.headers[name]
	return v, ok
}

// Headers returns a copy of all request headers.
func (r *Request) Headers() map[string]string {
	return copyMap(r.headers)
}

// Version returns the protocol version token, e.g. "HTTP/1.1".
func (r *Request) Version() string {
	return r.version
}

// Body returns a copy of the request body.
func (r *Request) Body() []byte {
	return bytes.Clone(r.body)
}

// BodyReader returns a reader over the request body.
func (r *Request) BodyReader() io.Reader {
	return bytes.NewReader(r.body)
}

// BodySize returns the declared Content-Length of the request. It can be
// larger than len(Body()) if the client closed its stream early.
func (r *Request) BodySize() int64 {
	return r.bodySize
}

func copyMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
