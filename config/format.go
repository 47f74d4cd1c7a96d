// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"io"

	"github.com/z5labs/edge/internal/try"

	"github.com/spf13/viper"
)

// Yaml represents a Source where its underlying format is YAML.
type Yaml struct {
	r io.Reader
}

// FromYaml returns a source which will apply its config
// from YAML values parsed from the given io.Reader.
// If r is an [io.Closer], it is closed once read.
func FromYaml(r io.Reader) Yaml {
	return Yaml{r: r}
}

// Apply implements the Source interface.
func (src Yaml) Apply(store Store) error {
	return applyFormat(store, "yaml", src.r)
}

// Json represents a Source where its underlying format is JSON.
type Json struct {
	r io.Reader
}

// FromJson returns a source which will apply its config
// from JSON values parsed from the given io.Reader.
// If r is an [io.Closer], it is closed once read.
func FromJson(r io.Reader) Json {
	return Json{r: r}
}

// Apply implements the Source interface.
func (src Json) Apply(store Store) error {
	return applyFormat(store, "json", src.r)
}

// InvalidFormatError occurs if the underlying io.Reader can not be
// parsed in the expected format.
type InvalidFormatError struct {
	Format string
	Cause  error
}

// Error implements the error interface.
func (e InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Format, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidFormatError) Unwrap() error {
	return e.Cause
}

func applyFormat(store Store, format string, r io.Reader) (err error) {
	c, _ := r.(io.Closer)
	defer try.Close(&err, c)

	v := viper.New()
	v.SetConfigType(format)
	err = v.ReadConfig(r)
	if err != nil {
		return InvalidFormatError{Format: format, Cause: err}
	}
	return Map(v.AllSettings()).Apply(store)
}
