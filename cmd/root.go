// Package cmd implements the sharepreview CLI using Cobra.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/adammathes/sharepreview/internal/config"
)

// app carries the state shared by every command: configuration resolved
// from defaults, environment and flags, and the process logger.
type app struct {
	root   *cobra.Command
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	// Persistent flag values. Only flags the user set override the
	// environment.
	logLevel     string
	timeout      time.Duration
	userAgent    string
	proxy        string
	allowPrivate bool
	browserTLS   bool
	workers      int
	concurrency  int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return newApp(stdout, stderr).root
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr}
	def := config.Default()

	root := &cobra.Command{
		Use:   "sharepreview",
		Short: "sharepreview: see how a link unfurls on social platforms",
		Long: `sharepreview fetches a web page, reads its Open Graph, Twitter Card and
fallback HTML metadata, and builds the link preview card Facebook, Mastodon,
Twitter, LinkedIn and Discourse would show for it.

Usage:
  sharepreview preview <url> [flags]
  sharepreview inspect <url> [flags]

Environment variables SHAREPREVIEW_TIMEOUT, SHAREPREVIEW_USER_AGENT,
SHAREPREVIEW_PROXY, SHAREPREVIEW_MAX_RESPONSE_BYTES,
SHAREPREVIEW_DECODE_WORKERS, SHAREPREVIEW_CHECK_CONCURRENCY,
SHAREPREVIEW_ALLOW_PRIVATE, SHAREPREVIEW_BROWSER_TLS and
SHAREPREVIEW_LOG_LEVEL set defaults; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.DurationVar(&a.timeout, "timeout", def.Timeout, "HTTP request timeout")
	pf.StringVar(&a.userAgent, "user-agent", def.UserAgent, "User-Agent header for page and image requests")
	pf.StringVar(&a.proxy, "proxy", "", "HTTP proxy URL (e.g. http://127.0.0.1:8080)")
	pf.BoolVar(&a.allowPrivate, "allow-private", false, "Allow requests to loopback and private network addresses")
	pf.BoolVar(&a.browserTLS, "browser-tls", def.BrowserTLS, "Dial HTTPS with a Firefox TLS fingerprint")
	pf.IntVar(&a.workers, "workers", def.DecodeWorkers, "Concurrent image decode jobs")
	pf.IntVar(&a.concurrency, "concurrency", def.CheckConcurrency, "Concurrent image checks per card")

	root.AddCommand(newPreviewCmd(a), newInspectCmd(a))
	a.root = root
	return a
}

// configure resolves the configuration for cmd and installs the logger.
func (a *app) configure(cmd *cobra.Command) error {
	c, err := config.FromEnv()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		level, err := config.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	if flags.Changed("timeout") {
		c.Timeout = a.timeout
	}
	if flags.Changed("user-agent") {
		c.UserAgent = a.userAgent
	}
	if flags.Changed("proxy") {
		c.Proxy = a.proxy
	}
	if flags.Changed("allow-private") {
		c.AllowPrivate = a.allowPrivate
	}
	if flags.Changed("browser-tls") {
		c.BrowserTLS = a.browserTLS
	}
	if flags.Changed("workers") {
		c.DecodeWorkers = a.workers
	}
	if flags.Changed("concurrency") {
		c.CheckConcurrency = a.concurrency
	}
	if err := c.Validate(); err != nil {
		return err
	}

	a.cfg = c
	a.logger = c.NewLogger(a.stderr)
	return nil
}

// Execute runs the root command. An interrupt cancels in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
