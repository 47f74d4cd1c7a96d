// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/z5labs/edge/pkg/serverlog"
)

// Response accumulates the status, content type and extra headers of a
// response and writes exactly one frame to its connection.
//
// Writes never report transport failures: the connection is discarded
// right after the response anyway. Only the first write emits a frame and
// writes after the connection has been released are no-ops.
type Response struct {
	// Status defaults to [StatusOK].
	Status Status

	// ContentType defaults to [ContentTypeText].
	ContentType string

	mu      sync.Mutex
	w       io.Writer
	log     serverlog.Logger
	keys    []string
	headers map[string]string
	written bool
}

// NewResponse returns a Response which writes its frame to w.
func NewResponse(w io.Writer) *Response {
	return &Response{
		Status:      StatusOK,
		ContentType: ContentTypeText,
		w:           w,
		log:         serverlog.Noop{},
		headers:     make(map[string]string),
	}
}

// SetHeader sets an extra response header. Headers are written in the
// order they were first set. Content-Type updates [Response.ContentType]
// and Content-Length is always computed from the body, so it's ignored.
func (r *Response) SetHeader(key, value string) {
	switch {
	case strings.EqualFold(key, HeaderContentType):
		r.ContentType = value
		return
	case strings.EqualFold(key, HeaderContentLength):
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.headers[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.headers[key] = value
}

// Header returns the extra header value set for key.
func (r *Response) Header(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.headers[key]
	return v, ok
}

// Written reports whether a frame has been written, or attempted, already.
func (r *Response) Written() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Write writes a frame with text as its body.
func (r *Response) Write(text string) {
	r.writeFrame(int64(len(text)), func(w *bufio.Writer) error {
		_, err := w.WriteString(text)
		return err
	})
}

// WriteBytes writes a frame with b as its body.
func (r *Response) WriteBytes(b []byte) {
	r.writeFrame(int64(len(b)), func(w *bufio.Writer) error {
		_, err := w.Write(b)
		return err
	})
}

// WriteFrom writes a frame whose body is copied from src. The
// Content-Length is size, so src must provide exactly size bytes.
func (r *Response) WriteFrom(src io.Reader, size int64) {
	r.writeFrame(size, func(w *bufio.Writer) error {
		n, err := io.CopyN(w, src, size)
		if err != nil {
			return fmt.Errorf("copied %d of %d body bytes: %w", n, size, err)
		}
		return nil
	})
}

// WriteJSON marshals v, sets the content type to [ContentTypeJSON] and
// writes the result. Only marshalling failures are returned.
func (r *Response) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.ContentType = ContentTypeJSON
	r.Write(string(b))
	return nil
}

func (r *Response) writeFrame(size int64, body func(*bufio.Writer) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.written || r.w == nil {
		return
	}
	r.written = true

	bw := bufio.NewWriter(r.w)
	err := r.writeHeaderBlock(bw, size)
	if err == nil {
		err = body(bw)
	}
	if err == nil {
		_, err = bw.WriteString("\r\n")
	}
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		r.log.Info("failed to write response: %s", err)
	}
}

func (r *Response) writeHeaderBlock(w *bufio.Writer, size int64) error {
	status := r.Status
	if !status.valid() {
		status = StatusInternalServerError
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/1.1 %d %s\r\n", int(status), status)
	fmt.Fprintf(&sb, "%s: %d\r\n", HeaderContentLength, size)
	fmt.Fprintf(&sb, "%s: %s\r\n", HeaderContentType, sanitize(r.ContentType))
	for _, k := range r.keys {
		fmt.Fprintf(&sb, "%s: %s\r\n", sanitize(k), sanitize(r.headers[k]))
	}
	sb.WriteString("\r\n")

	_, err := w.WriteString(sb.String())
	return err
}

// release detaches the connection so any later write is a no-op.
func (r *Response) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = nil
}

// sanitize drops CR, LF and other control characters except HTAB
// so header values can't inject extra header lines.
func sanitize(v string) string {
	return strings.Map(func(c rune) rune {
		if c == '\t' {
			return c
		}
		if c < 0x20 || c == 0x7f {
			return -1
		}
		return c
	}, v)
}
