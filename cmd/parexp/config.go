// Copyright (c) 2024, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

// config holds the settings which can be loaded with -config.
// Flags given on the command line take precedence.
type config struct {
	// Compat is the default compatibility mode, "bash" or "posix".
	Compat string `json:"compat" validate:"omitempty,oneof=bash posix"`

	// Nounset enables "set -u".
	Nounset bool `json:"nounset"`

	// Env holds extra variables, added on top of the process environment.
	Env map[string]string `json:"env" validate:"dive,keys,varname,endkeys"`

	// Readonly lists the variables to be marked read-only before the
	// program runs.
	Readonly []string `json:"readonly" validate:"dive,varname"`

	// Params are the positional parameters used when none are given on
	// the command line.
	Params []string `json:"params"`
}

func loadConfig(fs afero.Fs, path string) (*config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *config) validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	validate.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return syntax.ValidName(fl.Field().String())
	})
	return validate.Struct(c)
}

func (c *config) compat() (expand.Compat, error) {
	var compat expand.Compat
	if c.Compat == "" {
		return compat, nil
	}
	err := compat.Set(c.Compat)
	return compat, err
}

// environ returns the process environment pairs with the configured
// variables appended, so that the latter win.
func (c *config) environ(base []string) []string {
	pairs := append([]string{}, base...)
	names := make([]string, 0, len(c.Env))
	for name := range c.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pairs = append(pairs, name+"="+c.Env[name])
	}
	return pairs
}
