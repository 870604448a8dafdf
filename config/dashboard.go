package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

// Dashboard configures the two-agent viewer.
type Dashboard struct {
	Addr          string
	UKURL         string
	USURL         string
	PollInterval  time.Duration
	SnapshotLimit int
	ViewLimit     int
	LogLevel      string
	LogFormat     string
	// Terminal prints reconciled views to stdout instead of serving HTML.
	Terminal bool
}

// DefaultDashboard returns the built-in dashboard settings.
func DefaultDashboard() Dashboard {
	return Dashboard{
		Addr:          ":3000",
		UKURL:         "http://localhost:4000",
		USURL:         "http://localhost:5001",
		PollInterval:  5 * time.Second,
		SnapshotLimit: 200,
		ViewLimit:     400,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// ParseDashboard loads the environment and applies flags on top.
func ParseDashboard(name string, args []string, getenv func(string) string) (Dashboard, error) {
	cfg := DefaultDashboard()
	env := newEnvReader(getenv)

	cfg.Addr = env.string("DASHBOARD_ADDR", cfg.Addr)
	cfg.UKURL = env.string("UK_AGENT_URL", cfg.UKURL)
	cfg.USURL = env.string("US_AGENT_URL", cfg.USURL)
	cfg.PollInterval = env.duration("POLL_INTERVAL", cfg.PollInterval)
	cfg.SnapshotLimit = env.int("SNAPSHOT_LIMIT", cfg.SnapshotLimit)
	cfg.ViewLimit = env.int("VIEW_LIMIT", cfg.ViewLimit)
	cfg.LogLevel = env.string("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env.string("LOG_FORMAT", cfg.LogFormat)

	if err := env.err(); err != nil {
		return Dashboard{}, err
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address (env DASHBOARD_ADDR)")
	fs.StringVar(&cfg.UKURL, "uk-url", cfg.UKURL, "UK agent base URL (env UK_AGENT_URL)")
	fs.StringVar(&cfg.USURL, "us-url", cfg.USURL, "US agent base URL (env US_AGENT_URL)")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "snapshot poll interval (env POLL_INTERVAL)")
	fs.IntVar(&cfg.SnapshotLimit, "snapshot-limit", cfg.SnapshotLimit, "records fetched per poll (env SNAPSHOT_LIMIT)")
	fs.IntVar(&cfg.ViewLimit, "view-limit", cfg.ViewLimit, "records kept per agent view (env VIEW_LIMIT)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json (env LOG_FORMAT)")
	fs.BoolVar(&cfg.Terminal, "terminal", false, "print views to the terminal instead of serving HTML")

	if err := fs.Parse(args); err != nil {
		return Dashboard{}, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (d Dashboard) Validate() error {
	var errs []error

	for name, raw := range map[string]string{"UK agent URL": d.UKURL, "US agent URL": d.USURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}

	if d.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", d.PollInterval))
	}

	if d.ViewLimit < 1 {
		errs = append(errs, errors.New("view limit must be positive"))
	}

	return errors.Join(errs...)
}
