// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package filehandler serves static files from a directory.
package filehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/z5labs/edge/httpd"
	"github.com/z5labs/edge/internal/try"
	"github.com/z5labs/edge/pkg/serverlog"
)

// DefaultIndexFiles are tried, in order, when a directory is requested.
var DefaultIndexFiles = []string{
	"index.html",
	"index.htm",
	"default.html",
	"default.htm",
}

type handlerOptions struct {
	mount      string
	indexFiles []string
}

// Option configures a [Handler].
type Option func(*handlerOptions)

// MountPath sets the URL prefix the root directory is served under.
// The default is "/".
func MountPath(prefix string) Option {
	return func(ho *handlerOptions) {
		ho.mount = prefix
	}
}

// IndexFiles replaces [DefaultIndexFiles].
func IndexFiles(names ...string) Option {
	return func(ho *handlerOptions) {
		ho.indexFiles = names
	}
}

// Handler answers GET requests below its mount path with files from
// its root directory.
//
// Requests for missing files are left to the rest of the chain.
// Directories without an index file fail with 404 and paths which
// resolve outside of the root fail with 403.
type Handler struct {
	root       string
	mount      string
	indexFiles []string
}

// New returns a Handler serving files from root.
func New(root string, opts ...Option) *Handler {
	ho := &handlerOptions{
		mount:      "/",
		indexFiles: DefaultIndexFiles,
	}
	for _, opt := range opts {
		opt(ho)
	}

	return &Handler{
		root:       filepath.Clean(root),
		mount:      ho.mount,
		indexFiles: ho.indexFiles,
	}
}

// Handle implements the [httpd.Handler] interface.
func (h *Handler) Handle(ctx context.Context, log serverlog.Logger, req *httpd.Request, resp *httpd.Response) (bool, error) {
	if req.Method() != httpd.MethodGet {
		return false, nil
	}
	if !strings.HasPrefix(req.URL(), h.mount) {
		return false, nil
	}

	name, err := h.resolve(strings.TrimPrefix(req.URL(), h.mount))
	if err != nil {
		return false, httpd.ProtocolError{
			Status:  httpd.StatusForbidden,
			Context: req.URL(),
			Cause:   err,
		}
	}

	info, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if info.IsDir() {
		name, info, err = h.index(name)
		if err != nil {
			return false, httpd.ProtocolError{
				Status:  httpd.StatusNotFound,
				Context: req.URL(),
				Cause:   err,
			}
		}
	}

	log.Info("serving %s for %s", name, req.URL())
	return true, serveFile(resp, name, info.Size())
}

var errOutsideRoot = errors.New("path resolves outside of the root directory")

func (h *Handler) resolve(rel string) (string, error) {
	name := filepath.Join(h.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(h.root, name)
	if err != nil {
		return "", err
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return name, nil
}

func (h *Handler) index(dir string) (string, fs.FileInfo, error) {
	for _, indexFile := range h.indexFiles {
		name := filepath.Join(dir, indexFile)
		info, err := os.Stat(name)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return name, info, nil
	}
	return "", nil, fmt.Errorf("no index file in directory: %s", dir)
}

func serveFile(resp *httpd.Response, name string, size int64) (err error) {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer try.Close(&err, f)

	resp.ContentType = Lookup(name)
	resp.WriteFrom(f, size)
	return nil
}
