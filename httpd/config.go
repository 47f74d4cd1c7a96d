// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the flat server configuration.
type Config struct {
	// Address is the IP address to listen on. Empty means all interfaces.
	Address string `config:"address"`

	Port uint16 `config:"port"`

	// MaxClients is the number of connections handled concurrently.
	MaxClients int `config:"maxClients"`

	// MaxPostSize bounds the header block and the body of a request, in bytes.
	MaxPostSize int64 `config:"maxPostSize"`

	// Debug adds fault messages and traces to 500 pages.
	Debug bool `config:"debug"`

	// ErrorPages maps status codes to literal HTML served instead of
	// the generated error page.
	ErrorPages map[int]string `config:"errorPages"`

	// AdmissionTimeout is how long an accepted connection may wait
	// for a free slot before it is closed.
	AdmissionTimeout time.Duration `config:"admissionTimeout"`
}

// DefaultConfig returns the configuration used for unset values.
func DefaultConfig() Config {
	return Config{
		Port:             8080,
		MaxClients:       64,
		MaxPostSize:      DefaultMaxPayload,
		AdmissionTimeout: 100 * time.Millisecond,
	}
}

// ListenAddr returns the address in host:port form.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port)))
}

// Validate reports the first invalid value as a [ConfigError].
func (c Config) Validate() error {
	if c.Address != "" && net.ParseIP(c.Address) == nil {
		return ConfigError{Field: "address", Cause: fmt.Errorf("not an IP address: %q", c.Address)}
	}
	if c.MaxClients < 1 {
		return ConfigError{Field: "maxClients", Cause: errors.New("must be at least 1")}
	}
	if c.MaxPostSize < 1 {
		return ConfigError{Field: "maxPostSize", Cause: errors.New("must be at least 1")}
	}
	if c.AdmissionTimeout <= 0 {
		return ConfigError{Field: "admissionTimeout", Cause: errors.New("must be positive")}
	}
	for code := range c.ErrorPages {
		if !Status(code).valid() {
			return ConfigError{Field: "errorPages", Cause: fmt.Errorf("not a status code: %d", code)}
		}
	}
	return nil
}
