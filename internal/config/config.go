// Package config holds the runtime settings shared by the commands:
// HTTP behaviour, worker limits and logging. Values come from Default,
// are overridden by SHAREPREVIEW_* environment variables and finally by
// command-line flags.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/adammathes/sharepreview/internal/fetch"
)

const envPrefix = "SHAREPREVIEW_"

// Config is the full runtime configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
	// MaxResponseBytes caps page and image downloads.
	MaxResponseBytes int64
	// DecodeWorkers bounds concurrent decode/resize/encode jobs.
	DecodeWorkers int
	// CheckConcurrency bounds concurrent candidate checks within a build.
	CheckConcurrency int
	// AllowPrivate lets requests reach loopback and private addresses.
	AllowPrivate bool
	// BrowserTLS dials HTTPS with a browser TLS fingerprint.
	BrowserTLS bool
	LogLevel   slog.Level
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Timeout:          30 * time.Second,
		UserAgent:        fetch.DefaultUserAgent,
		MaxResponseBytes: fetch.DefaultMaxResponseBytes,
		DecodeWorkers:    runtime.GOMAXPROCS(0),
		CheckConcurrency: 8,
		BrowserTLS:       true,
		LogLevel:         slog.LevelInfo,
	}
}

// FromEnv returns Default overridden by the environment.
func FromEnv() (Config, error) {
	c := Default()
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, nil
}

// ApplyEnv overrides c from lookup, which has the signature of
// os.LookupEnv. Unset variables leave the field alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := get("USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := get("PROXY"); ok {
		c.Proxy = v
	}
	if v, ok := get("MAX_RESPONSE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_RESPONSE_BYTES: %w", envPrefix, err)
		}
		c.MaxResponseBytes = n
	}
	if v, ok := get("DECODE_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDECODE_WORKERS: %w", envPrefix, err)
		}
		c.DecodeWorkers = n
	}
	if v, ok := get("CHECK_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCHECK_CONCURRENCY: %w", envPrefix, err)
		}
		c.CheckConcurrency = n
	}
	if v, ok := get("ALLOW_PRIVATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sALLOW_PRIVATE: %w", envPrefix, err)
		}
		c.AllowPrivate = b
	}
	if v, ok := get("BROWSER_TLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sBROWSER_TLS: %w", envPrefix, err)
		}
		c.BrowserTLS = b
	}
	if v, ok := get("LOG_LEVEL"); ok {
		level, err := ParseLevel(v)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	return nil
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.CheckConcurrency < 1 {
		return fmt.Errorf("check concurrency must be at least 1, got %d", c.CheckConcurrency)
	}
	return nil
}

// FetchOptions returns the HTTP client options for c.
func (c Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:      c.Timeout,
		Proxy:        c.Proxy,
		Browser:      c.BrowserTLS,
		AllowPrivate: c.AllowPrivate,
	}
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger returns a text logger on w at c's level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
