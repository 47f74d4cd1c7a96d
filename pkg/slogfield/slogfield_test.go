// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slogfield

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJsonHandler(t *testing.T) {
	testCases := []struct {
		Name   string
		Attr   slog.Attr
		Key    string
		Expect any
	}{
		{
			Name:   "error",
			Attr:   Error(errors.New("hello, world")),
			Key:    "error",
			Expect: "hello, world",
		},
		{
			Name:   "string",
			Attr:   String("value", "hello"),
			Key:    "value",
			Expect: "hello",
		},
	}

	for _, testCase := range testCases {
		tc := testCase
		t.Run(tc.Name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))
			log.Info("test", tc.Attr)

			var res map[string]any
			err := json.Unmarshal(buf.Bytes(), &res)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, tc.Expect, res[tc.Key]) {
				return
			}
		})
	}
}
