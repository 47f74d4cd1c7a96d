// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		Name  string
		Apply func(*Config)
		Field string
	}{
		{
			Name:  "defaults",
			Apply: func(*Config) {},
		},
		{
			Name:  "ipv6 address",
			Apply: func(c *Config) { c.Address = "::1" },
		},
		{
			Name:  "hostname address",
			Apply: func(c *Config) { c.Address = "localhost" },
			Field: "address",
		},
		{
			Name:  "zero max clients",
			Apply: func(c *Config) { c.MaxClients = 0 },
			Field: "maxClients",
		},
		{
			Name:  "zero max post size",
			Apply: func(c *Config) { c.MaxPostSize = 0 },
			Field: "maxPostSize",
		},
		{
			Name:  "negative admission timeout",
			Apply: func(c *Config) { c.AdmissionTimeout = -1 },
			Field: "admissionTimeout",
		},
		{
			Name:  "error page for an invalid code",
			Apply: func(c *Config) { c.ErrorPages = map[int]string{1000: "nope"} },
			Field: "errorPages",
		},
		{
			Name:  "error page for a valid code",
			Apply: func(c *Config) { c.ErrorPages = map[int]string{404: "<p>gone</p>"} },
		},
	}

	for _, testCase := range testCases {
		tc := testCase
		t.Run(tc.Name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.Apply(&cfg)

			err := cfg.Validate()
			if tc.Field == "" {
				assert.Nil(t, err)
				return
			}

			var cerr ConfigError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
			assert.Equal(t, tc.Field, cerr.Field)
		})
	}
}

func TestConfig_ListenAddr(t *testing.T) {
	testCases := []struct {
		Address  string
		Port     uint16
		Expected string
	}{
		{Address: "", Port: 8080, Expected: ":8080"},
		{Address: "127.0.0.1", Port: 80, Expected: "127.0.0.1:80"},
		{Address: "::1", Port: 0, Expected: "[::1]:0"},
	}

	for _, testCase := range testCases {
		tc := testCase
		t.Run(tc.Expected, func(t *testing.T) {
			cfg := Config{Address: tc.Address, Port: tc.Port}
			assert.Equal(t, tc.Expected, cfg.ListenAddr())
		})
	}
}
