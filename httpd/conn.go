// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/z5labs/edge/internal/htmlpage"
	"github.com/z5labs/edge/internal/try"
	"github.com/z5labs/edge/pkg/serverlog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// serveConn owns conn and closes it exactly once, however handling ends.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	spanCtx, span := s.tracer.Start(
		ctx,
		"httpd.serveConn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer.addr", remoteAddr(conn))),
	)
	defer span.End()

	s.metrics.active.Add(spanCtx, 1)
	defer s.metrics.active.Add(spanCtx, -1)

	log := serverlog.For(spanCtx, s.log)
	resp := NewResponse(conn)
	resp.log = log

	var err error
	defer func() {
		resp.release()
		try.Close(&err, conn)
		if err != nil {
			log.Critical(err)
		}
	}()
	defer try.Recover(&err)

	status, ok := s.handleConn(spanCtx, log, conn, resp)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", int(status)))
	s.metrics.requests.Add(spanCtx, 1, metric.WithAttributes(attribute.Int("http.status_code", int(status))))
}

// handleConn parses and dispatches one request, mapping any failure onto
// the response. It reports false if no response was sent at all.
func (s *Server) handleConn(ctx context.Context, log serverlog.Logger, conn net.Conn, resp *Response) (Status, bool) {
	req, err := s.parse(ctx, conn)
	if err == nil {
		err = s.dispatch(ctx, log, req, resp)
	}
	if err == nil {
		return resp.Status, true
	}
	if errors.Is(err, ErrEmptyRequest) {
		log.Info("connection from %s closed without a request", remoteAddr(conn))
		return 0, false
	}
	return s.fail(ctx, log, resp, err), true
}

func (s *Server) parse(ctx context.Context, conn net.Conn) (*Request, error) {
	_, span := s.tracer.Start(ctx, "httpd.parse")
	defer span.End()

	p := Parser{MaxPayload: s.cfg.MaxPostSize}
	req, err := p.Parse(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("http.method", req.Method().String()),
		attribute.String("http.target", req.URL()),
		attribute.Int64("http.request_content_length", req.BodySize()),
	)
	return req, nil
}

func (s *Server) dispatch(ctx context.Context, log serverlog.Logger, req *Request, resp *Response) error {
	spanCtx, span := s.tracer.Start(ctx, "httpd.dispatch")
	defer span.End()

	return s.handlers.Dispatch(spanCtx, log, req, resp)
}

// fail writes the error page for err unless a handler already wrote a
// frame before failing.
func (s *Server) fail(ctx context.Context, log serverlog.Logger, resp *Response, err error) Status {
	status, isProtocol := StatusOf(err)
	if isProtocol {
		log.Warning("%s", err)
	} else {
		log.Critical(err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if resp.Written() {
		log.Info("response already written, dropping %d error page", int(status))
		return resp.Status
	}

	resp.Status = status
	resp.ContentType = ContentTypeHTML
	if isProtocol {
		resp.Write(s.errorPage(status))
		return status
	}
	resp.Write(s.internalErrorPage(err))
	return status
}

func (s *Server) errorPage(status Status) string {
	if page, ok := s.cfg.ErrorPages[int(status)]; ok {
		return page
	}

	title := fmt.Sprintf("%d %s", int(status), status)
	b := htmlpage.New(title)
	b.Heading(1, title)
	b.Link(status.Reference(), fmt.Sprintf("More information about %d %s", int(status), status))
	return b.String()
}

func (s *Server) internalErrorPage(err error) string {
	b := htmlpage.New("Internal server error")
	b.Heading(1, "Internal server error")
	if s.cfg.Debug {
		b.Paragraph(err.Error())
		b.Pre(diagnostics(err))
	}
	return b.String()
}

// diagnostics returns the panic stack for recovered panics and the chain
// of wrapped errors otherwise.
func diagnostics(err error) string {
	var perr PanicError
	if errors.As(err, &perr) && len(perr.Stack) > 0 {
		return string(perr.Stack)
	}

	var sb strings.Builder
	for depth, e := 0, err; e != nil; depth, e = depth+1, errors.Unwrap(e) {
		fmt.Fprintf(&sb, "%s%T: %s\n", strings.Repeat("  ", depth), e, e)
	}
	return sb.String()
}

func remoteAddr(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	return addr.String()
}
