// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxPayload is the payload limit used when a [Parser] has none configured.
const DefaultMaxPayload int64 = 25 * 1024 * 1024

// ErrEmptyRequest is returned when the stream ends before any request line was received.
var ErrEmptyRequest = errors.New("httpd: stream closed before a request line was received")

// Parser reads a single HTTP request from a stream.
type Parser struct {
	// MaxPayload bounds both the header block and the request body, in bytes.
	// Values less than 1 mean [DefaultMaxPayload].
	MaxPayload int64
}

// ReadRequest parses a single request from r using the given payload limit.
// If r is not a [*bufio.Reader] bytes following the request may be buffered
// and lost.
func ReadRequest(r io.Reader, maxPayload int64) (*Request, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return Parser{MaxPayload: maxPayload}.Parse(br)
}

func (p Parser) limit() int64 {
	if p.MaxPayload < 1 {
		return DefaultMaxPayload
	}
	return p.MaxPayload
}

// Parse reads the request line, the header block and, for POST requests
// with a Content-Length, the body from br. It consumes nothing from br past
// the end of the body.
//
// Malformed requests fail with a [ProtocolError]. Stream failures are
// returned wrapped and are not ProtocolErrors.
func (p Parser) Parse(br *bufio.Reader) (*Request, error) {
	limit := p.limit()
	lr := &lineReader{br: br, budget: limit, limit: limit}

	line, err := lr.readLine()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyRequest
	}
	if err != nil {
		return nil, err
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	req.headers, err = readHeaders(lr)
	if err != nil {
		return nil, err
	}

	if req.method != MethodPost {
		return req, nil
	}
	v, ok := lookupHeader(req.headers, HeaderContentLength)
	if !ok {
		return req, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return nil, ProtocolError{
			Status:  StatusBadRequest,
			Context: fmt.Sprintf("malformed %s: %q", HeaderContentLength, v),
			Cause:   err,
		}
	}
	if n > limit {
		return nil, ProtocolError{
			Status:  StatusPayloadTooLarge,
			Context: fmt.Sprintf("%s of %d bytes exceeds the limit of %d bytes", HeaderContentLength, n, limit),
		}
	}

	req.body, err = readBody(br, n)
	if err != nil {
		return nil, err
	}
	req.bodySize = n
	return req, nil
}

func parseRequestLine(line string) (*Request, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, ProtocolError{
			Status:  StatusBadRequest,
			Context: fmt.Sprintf("malformed request line: %q", line),
		}
	}

	method, ok := ParseMethod(parts[0])
	if !ok {
		return nil, ProtocolError{
			Status:  StatusNotImplemented,
			Context: fmt.Sprintf("unsupported method: %q", parts[0]),
		}
	}

	path, params, err := parseTarget(parts[1])
	if err != nil {
		return nil, ProtocolError{
			Status:  StatusBadRequest,
			Context: fmt.Sprintf("malformed request target: %q", parts[1]),
			Cause:   err,
		}
	}

	req := &Request{
		method:  method,
		url:     path,
		params:  params,
		version: parts[2],
	}
	return req, nil
}

// parseTarget decodes the whole target before splitting it, so encoded
// separators also act as separators.
func parseTarget(target string) (string, map[string]string, error) {
	decoded, err := url.QueryUnescape(target)
	if err != nil {
		return "", nil, err
	}

	params := make(map[string]string)
	if !strings.ContainsAny(decoded, "?&=") {
		return decoded, params, nil
	}

	segments := splitAny(decoded, "?&")
	for _, segment := range segments[1:] {
		kv := strings.Split(segment, "=")
		if len(kv) != 2 {
			continue
		}
		params[kv[0]] = kv[1]
	}
	return segments[0], params, nil
}

// splitAny is like strings.Split but splits on every byte in seps.
// Empty segments are kept.
func splitAny(s, seps string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(seps, s[i]) < 0 {
			continue
		}
		segments = append(segments, s[start:i])
		start = i + 1
	}
	return append(segments, s[start:])
}

func readHeaders(lr *lineReader) (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := lr.readLine()
		if errors.Is(err, io.EOF) {
			return headers, nil
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			return headers, nil
		}

		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		headers[k] = strings.TrimSpace(v)
	}
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// readBody reads up to n bytes. A stream which ends early is not an error.
func readBody(r io.Reader, n int64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return buf[:read], nil
	}
	return nil, fmt.Errorf("httpd: failed to read request body: %w", err)
}

// lineReader reads CRLF or LF terminated lines while charging every byte
// against a shared budget for the whole header block.
type lineReader struct {
	br     *bufio.Reader
	budget int64
	limit  int64
}

// readLine returns io.EOF only if the stream ended before any byte of the
// line was read. A partial final line is returned without error.
func (lr *lineReader) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := lr.br.ReadByte()
		if errors.Is(err, io.EOF) {
			if sb.Len() == 0 {
				return "", io.EOF
			}
			return strings.TrimSuffix(sb.String(), "\r"), nil
		}
		if err != nil {
			return "", fmt.Errorf("httpd: failed to read request header: %w", err)
		}

		lr.budget--
		if lr.budget < 0 {
			return "", ProtocolError{
				Status:  StatusRequestHeaderFieldsTooLarge,
				Context: fmt.Sprintf("header block exceeds the limit of %d bytes", lr.limit),
			}
		}

		if b == '\n' {
			return strings.TrimSuffix(sb.String(), "\r"), nil
		}
		sb.WriteByte(b)
	}
}
