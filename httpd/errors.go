// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/z5labs/edge/internal/try"
)

// ProtocolError is a request failure with a well defined HTTP status.
// Handlers return it to short circuit the chain with that status.
type ProtocolError struct {
	Status Status

	// Context is optional detail about the failure, e.g. the offending path.
	Context string

	Cause error
}

// Error implements the [error] interface.
func (e ProtocolError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s", int(e.Status), e.Status)
	if e.Context != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Context)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ProtocolError) Unwrap() error {
	return e.Cause
}

// StatusOf classifies err. A [ProtocolError] anywhere in the chain yields its
// status and true, every other non-nil error yields [StatusInternalServerError]
// and false.
func StatusOf(err error) (Status, bool) {
	var perr ProtocolError
	if errors.As(err, &perr) {
		return perr.Status, true
	}
	return StatusInternalServerError, false
}

// PanicError is a panic recovered from a handler.
type PanicError = try.PanicError

// ErrNoHandlers is returned by [Server.Run] if no handlers are registered.
var ErrNoHandlers = errors.New("httpd: no request handlers are registered")

// ErrServerRunning is returned by [Server.Run] if the server is already running.
var ErrServerRunning = errors.New("httpd: server is already running")

// ConfigError occurs when a [Config] value is invalid.
type ConfigError struct {
	Field string
	Cause error
}

// Error implements the [error] interface.
func (e ConfigError) Error() string {
	return fmt.Sprintf("httpd: invalid config value for %s: %s", e.Field, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigError) Unwrap() error {
	return e.Cause
}
