// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpd implements a minimal HTTP/1.x server directly on top of
// TCP connections.
//
// Every connection carries exactly one request. The request is parsed
// into an immutable [Request], offered to a chain of [Handler]s in
// registration order and the first one to claim it writes the [Response].
// Failures are mapped to HTTP status codes: a [ProtocolError] carries its
// own status while any other error becomes a 500 Internal Server Error.
//
// Keep-alive, chunked transfer encoding, TLS and HTTP/2 are not supported.
// Request bodies are only read for POST requests carrying a Content-Length.
//
//	srv := httpd.New(
//		httpd.DefaultConfig(),
//		httpd.HandleFunc(func(ctx context.Context, log serverlog.Logger, req *httpd.Request, resp *httpd.Response) (bool, error) {
//			resp.Write("hello, world")
//			return true, nil
//		}),
//	)
//	err := srv.Run(ctx)
package httpd
