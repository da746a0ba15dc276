package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the process environment using `env` and
// `envDefault` struct tags. A prefix, when given, is prepended to every
// variable name so several components can share one environment.
func Load(cfg any, prefix ...string) error {
	opts := env.Options{}
	if len(prefix) > 0 {
		opts.Prefix = prefix[0]
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Parse is the generic form of Load.
func Parse[T any](prefix ...string) (*T, error) {
	var cfg T
	if err := Load(&cfg, prefix...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
