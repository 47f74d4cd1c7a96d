// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"
)

// Env represents a Source where its underlying values
// are extracted from environment variables.
type Env struct {
	prefix  string
	environ func() []string
}

// FromEnv returns a Source which will apply its config from the
// environment variables of the current process starting with
// prefix followed by an underscore.
//
// The remainder of the name is lower cased and every underscore
// separates a key, e.g. EDGE_SERVER_PORT applies "server.port"
// for the prefix "EDGE".
func FromEnv(prefix string) Env {
	return Env{
		prefix:  prefix,
		environ: os.Environ,
	}
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	prefix := src.prefix + "_"
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, found := strings.CutPrefix(k, prefix)
		if !found || name == "" {
			continue
		}

		key := strings.ReplaceAll(strings.ToLower(name), "_", ".")
		err := store.Set(key, v)
		if err != nil {
			return err
		}
	}
	return nil
}
