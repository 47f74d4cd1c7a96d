// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package healthhandler exposes health metrics as GET endpoints.
package healthhandler

import (
	"context"

	"github.com/z5labs/edge/httpd"
	"github.com/z5labs/edge/pkg/health"
	"github.com/z5labs/edge/pkg/serverlog"
)

const (
	LivenessPath  = "/health/liveness"
	ReadinessPath = "/health/readiness"
)

type status struct {
	Healthy bool `json:"healthy"`
}

// NewHandler wraps a health.Metric into a handler claiming GET
// requests for path.
//
// If m.Healthy returns true, then HTTP status code 200 is
// returned, else, HTTP status code 503 is returned.
func NewHandler(path string, m health.Metric) httpd.Handler {
	return httpd.Methods(httpd.HandlerFunc(func(ctx context.Context, _ serverlog.Logger, req *httpd.Request, resp *httpd.Response) (bool, error) {
		if req.URL() != path {
			return false, nil
		}

		healthy := m.Healthy(ctx)
		if !healthy {
			resp.Status = httpd.StatusServiceUnavailable
		}
		return true, resp.WriteJSON(status{Healthy: healthy})
	}), httpd.MethodGet)
}

// New returns a chain answering [LivenessPath] and [ReadinessPath].
func New(liveness, readiness health.Metric) httpd.Chain {
	return httpd.Chain{
		NewHandler(LivenessPath, liveness),
		NewHandler(ReadinessPath, readiness),
	}
}
