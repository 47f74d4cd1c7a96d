// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filehandler

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/z5labs/edge/httpd"
	"github.com/z5labs/edge/pkg/serverlog"

	"github.com/stretchr/testify/assert"
)

func newRequest(t *testing.T, method, target string) *httpd.Request {
	t.Helper()

	req, err := httpd.ReadRequest(strings.NewReader(fmt.Sprintf("%s %s HTTP/1.1\r\n\r\n", method, target)), 0)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(name), 0o755)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(name, []byte(content), 0o644)
	if err != nil {
		t.Fatal(err)
	}
}

func serve(h *Handler, req *httpd.Request) (bool, *http.Response, string, error) {
	var buf bytes.Buffer
	handled, err := h.Handle(context.Background(), serverlog.Noop{}, req, httpd.NewResponse(&buf))
	if err != nil || !handled {
		return handled, nil, "", err
	}

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	if err != nil {
		return handled, nil, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	return handled, resp, string(b), err
}

func TestHandler_Handle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "<p>home</p>")
	writeFile(t, filepath.Join(root, "css", "site.css"), "body{}")
	writeFile(t, filepath.Join(root, "docs", "default.htm"), "docs")
	writeFile(t, filepath.Join(root, "data.unknownext"), "raw")
	err := os.MkdirAll(filepath.Join(root, "empty"), 0o755)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("will serve the file", func(t *testing.T) {
		t.Run("if it exists below the root", func(t *testing.T) {
			h := New(root)

			handled, resp, body, err := serve(h, newRequest(t, "GET", "/css/site.css"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, handled) {
				return
			}
			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, "text/css", resp.Header.Get(httpd.HeaderContentType)) {
				return
			}
			if !assert.Equal(t, "body{}", body) {
				return
			}
		})

		t.Run("with the default media type if the extension is unknown", func(t *testing.T) {
			h := New(root)

			_, resp, body, err := serve(h, newRequest(t, "GET", "/data.unknownext"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, DefaultMediaType, resp.Header.Get(httpd.HeaderContentType)) {
				return
			}
			if !assert.Equal(t, "raw", body) {
				return
			}
		})

		t.Run("if it's requested below the mount path", func(t *testing.T) {
			h := New(root, MountPath("/static/"))

			handled, _, body, err := serve(h, newRequest(t, "GET", "/static/css/site.css"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, handled) {
				return
			}
			if !assert.Equal(t, "body{}", body) {
				return
			}
		})
	})

	t.Run("will serve the index file", func(t *testing.T) {
		t.Run("if the root is requested", func(t *testing.T) {
			h := New(root)

			_, resp, body, err := serve(h, newRequest(t, "GET", "/"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "text/html", resp.Header.Get(httpd.HeaderContentType)) {
				return
			}
			if !assert.Equal(t, "<p>home</p>", body) {
				return
			}
		})

		t.Run("if a directory is requested", func(t *testing.T) {
			h := New(root)

			_, _, body, err := serve(h, newRequest(t, "GET", "/docs"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "docs", body) {
				return
			}
		})
	})

	t.Run("will not handle the request", func(t *testing.T) {
		t.Run("if the method is not GET", func(t *testing.T) {
			h := New(root)

			handled, _, _, err := serve(h, newRequest(t, "POST", "/index.html"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, handled) {
				return
			}
		})

		t.Run("if the path is outside of the mount path", func(t *testing.T) {
			h := New(root, MountPath("/static/"))

			handled, _, _, err := serve(h, newRequest(t, "GET", "/index.html"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, handled) {
				return
			}
		})

		t.Run("if the file does not exist", func(t *testing.T) {
			h := New(root)

			handled, _, _, err := serve(h, newRequest(t, "GET", "/missing.txt"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, handled) {
				return
			}
		})
	})

	t.Run("will return a 404 protocol error", func(t *testing.T) {
		t.Run("if a directory has no index file", func(t *testing.T) {
			h := New(root)

			_, _, _, err := serve(h, newRequest(t, "GET", "/empty"))

			status, ok := httpd.StatusOf(err)
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, httpd.StatusNotFound, status) {
				return
			}
		})
	})

	t.Run("will return a 403 protocol error", func(t *testing.T) {
		t.Run("if the path resolves outside of the root", func(t *testing.T) {
			h := New(filepath.Join(root, "docs"))

			_, _, _, err := serve(h, newRequest(t, "GET", "/../index.html"))

			var perr httpd.ProtocolError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, httpd.StatusForbidden, perr.Status) {
				return
			}
			if !assert.ErrorIs(t, err, errOutsideRoot) {
				return
			}
		})

		t.Run("if an encoded path resolves outside of the root", func(t *testing.T) {
			h := New(filepath.Join(root, "docs"))

			_, _, _, err := serve(h, newRequest(t, "GET", "/%2E%2E/index.html"))

			status, ok := httpd.StatusOf(err)
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, httpd.StatusForbidden, status) {
				return
			}
		})
	})
}

func TestLookup(t *testing.T) {
	testCases := []struct {
		Name     string
		Expected string
	}{
		{Name: "index.html", Expected: "text/html"},
		{Name: "STYLE.CSS", Expected: "text/css"},
		{Name: "app.js", Expected: "text/javascript"},
		{Name: "photo.jpeg", Expected: "image/jpeg"},
		{Name: "archive.tar", Expected: "application/x-tar"},
		{Name: "Makefile", Expected: DefaultMediaType},
		{Name: "blob.unknownext", Expected: DefaultMediaType},
	}

	for _, testCase := range testCases {
		tc := testCase
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, Lookup(tc.Name))
		})
	}
}
