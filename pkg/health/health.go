// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health provides health states which the server and its
// health check handler share.
package health

import (
	"context"
	"sync/atomic"
)

// Metric represents anything that can report its health status.
type Metric interface {
	Healthy(context.Context) bool
}

// Binary is a Metric that is either healthy or not.
// The zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// NewBinary returns a Binary in the given initial state.
func NewBinary(healthy bool) *Binary {
	b := &Binary{}
	b.healthy.Store(healthy)
	return b
}

// Set stores the given state.
func (m *Binary) Set(healthy bool) {
	m.healthy.Store(healthy)
}

// Toggle flips the current state.
func (m *Binary) Toggle() {
	for {
		old := m.healthy.Load()
		if m.healthy.CompareAndSwap(old, !old) {
			return
		}
	}
}

// Healthy implements the Metric interface.
func (m *Binary) Healthy(ctx context.Context) bool {
	return m.healthy.Load()
}

// AndMetric represents multiple Metrics all and'd together.
type AndMetric []Metric

// And returns a Metric which is only healthy when every one
// of metrics is healthy.
func And(metrics ...Metric) AndMetric {
	return AndMetric(metrics)
}

// Healthy implements the Metric interface.
func (m AndMetric) Healthy(ctx context.Context) bool {
	for _, metric := range m {
		if !metric.Healthy(ctx) {
			return false
		}
	}
	return true
}
