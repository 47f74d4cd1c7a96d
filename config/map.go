// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import "fmt"

// Map is an ordinary map[string]any but implements the Source interface.
type Map map[string]any

// Apply implements the Source interface. It recursively walks the underlying
// map to find key value pairs to set on the given store.
func (m Map) Apply(store Store) error {
	return walkMap(m, store, "")
}

func walkMap(m map[string]any, store Store, prefix string) error {
	for k, v := range m {
		err := walkValue(prefix+k, v, store)
		if err != nil {
			return err
		}
	}
	return nil
}

func walkValue(key string, v any, store Store) error {
	switch x := v.(type) {
	case map[string]any:
		return walkMap(x, store, key+".")
	case map[any]any:
		for k, v := range x {
			err := walkValue(fmt.Sprintf("%s.%v", key, k), v, store)
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return store.Set(key, x)
	}
}
