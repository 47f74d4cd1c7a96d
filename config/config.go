// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config reads layered configuration values from multiple
// sources and decodes them into structs tagged with `config`.
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Store represents a general key value structure. Keys are dot
// separated paths, e.g. "server.port".
type Store interface {
	Set(string, any) error
}

// Source defines valid config sources as those who can
// serialize themselves into a key value like structure.
type Source interface {
	Apply(Store) error
}

// Manager holds the merged values of every [Source] it was read from.
type Manager struct {
	v *viper.Viper
}

type viperStore struct {
	v *viper.Viper
}

func (s viperStore) Set(key string, value any) error {
	s.v.Set(key, value)
	return nil
}

// Read applies every source, in order, to a new Manager.
// Subsequent sources override previous sources.
func Read(srcs ...Source) (*Manager, error) {
	v := viper.New()
	store := viperStore{v: v}
	for _, src := range srcs {
		err := src.Apply(store)
		if err != nil {
			return nil, err
		}
	}
	return &Manager{v: v}, nil
}

// Apply implements the [Source] interface so a Manager can be
// layered under other sources.
func (m *Manager) Apply(store Store) error {
	return Map(m.v.AllSettings()).Apply(store)
}

// IsSet reports whether key has been set by any source.
func (m *Manager) IsSet(key string) bool {
	return m.v.IsSet(key)
}

// Unmarshal decodes the config values into v, which must be a
// pointer. Struct fields are matched by their `config` tag, case
// insensitively. Strings are decoded into [time.Duration] and
// [encoding.TextUnmarshaler] fields.
func (m *Manager) Unmarshal(v any) error {
	return m.v.Unmarshal(
		v,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)),
		func(dc *mapstructure.DecoderConfig) {
			dc.TagName = "config"
		},
	)
}
