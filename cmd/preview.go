package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adammathes/sharepreview/internal/logbook"
	"github.com/adammathes/sharepreview/internal/render"
)

type previewOptions struct {
	socials []string
	format  string
	output  string
	verbose bool
}

func newPreviewCmd(a *app) *cobra.Command {
	opts := &previewOptions{}
	cmd := &cobra.Command{
		Use:   "preview <url>",
		Short: "Build the link preview cards for a URL",
		Long: `Preview scrapes a page once and builds the card each selected platform
would show, concurrently. Cards are written as a standalone HTML page, as
JSON or as Markdown. Warnings and errors found while building are included
with each card; --verbose adds debug and info diagnostics.

Examples:
  sharepreview preview https://example.com/post
  sharepreview preview example.com/post --social twitter,mastodon --format json
  sharepreview preview https://example.com/post -o preview.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPreview(cmd.Context(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&opts.socials, "social", "s", []string{"all"}, "Platforms: facebook, mastodon, twitter, linkedin, discourse or all")
	f.StringVarP(&opts.format, "format", "f", "html", "Output format: html, json or markdown")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Include debug and info diagnostics")
	return cmd
}

type renderFunc func(w io.Writer, pageURL string, results []render.Result) error

func selectRenderer(format string) (renderFunc, error) {
	switch strings.ToLower(format) {
	case "html":
		return render.HTML, nil
	case "json":
		return func(w io.Writer, _ string, results []render.Result) error {
			return render.JSON(w, results)
		}, nil
	case "markdown", "md":
		return func(w io.Writer, _ string, results []render.Result) error {
			return render.Markdown(w, results)
		}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want html, json or markdown)", format)
}

func (a *app) runPreview(ctx context.Context, rawURL string, opts *previewOptions) error {
	socials, err := parseSocials(opts.socials)
	if err != nil {
		return err
	}
	renderer, err := selectRenderer(opts.format)
	if err != nil {
		return err
	}
	keep := logbook.Warning
	if opts.verbose {
		keep = logbook.Debug
	}

	// Stdout carries the rendering unless it goes to a file.
	var p *progress
	if opts.output != "" {
		p = newProgress(a.stdout)
	} else {
		p = newProgress(nil)
	}

	s := a.newSession()
	p.printf("Fetching %s\n", shortURL(rawURL))
	data, err := s.scrape(ctx, rawURL)
	if err != nil {
		return err
	}
	results, err := s.buildAll(ctx, data, socials, keep, p)
	if err != nil {
		return err
	}

	if opts.output == "" {
		return renderer(a.stdout, data.URL, results)
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := renderer(f, data.URL, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}
	p.printf("Written: %s\n", opts.output)
	return nil
}
