// Package config loads process configuration for treasury agents and the
// dashboard from environment variables and command-line flags. Flags take
// precedence over the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed values and collects every parse failure.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func newEnvReader(getenv func(string) string) *envReader {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	return &envReader{getenv: getenv}
}

func (r *envReader) string(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}

	return fallback
}

func (r *envReader) int(key string, fallback int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}

	return n
}

func (r *envReader) bool(key string, fallback bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}

	return b
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}

	return d
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
