package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adammathes/sharepreview/internal/card"
	"github.com/adammathes/sharepreview/internal/fetch"
	"github.com/adammathes/sharepreview/internal/logbook"
	"github.com/adammathes/sharepreview/internal/media"
	"github.com/adammathes/sharepreview/internal/page"
	"github.com/adammathes/sharepreview/internal/social"
)

type inspectOptions struct {
	socials []string
	json    bool
}

func newInspectCmd(a *app) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Show scraped metadata, image candidates and build diagnostics",
		Long: `Inspect scrapes a page and reports what each platform sees: the metadata
entries in document order, every image candidate with the size class it
qualifies for or the reason it was rejected, and the full build log.

Examples:
  sharepreview inspect https://example.com/post
  sharepreview inspect https://example.com/post --social facebook --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.socials, "social", "s", []string{"all"}, "Platforms: facebook, mastodon, twitter, linkedin, discourse or all")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Write the report as JSON")
	return cmd
}

type inspectReport struct {
	URL        string           `json:"url"`
	Title      *string          `json:"title,omitempty"`
	Favicon    string           `json:"favicon,omitempty"`
	Metadata   []metaReport     `json:"metadata"`
	BodyImages []string         `json:"body_images,omitempty"`
	Platforms  []platformReport `json:"platforms"`
}

type metaReport struct {
	Name     *string  `json:"name,omitempty"`
	Property []string `json:"property,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Image    string   `json:"image,omitempty"`
}

type candidateReport struct {
	URL    string `json:"url"`
	Kind   string `json:"kind,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	Error  string `json:"error,omitempty"`
}

type platformReport struct {
	Social     string            `json:"social"`
	Candidates []candidateReport `json:"candidates"`
	Size       string            `json:"size,omitempty"`
	Title      string            `json:"title,omitempty"`
	Error      string            `json:"error,omitempty"`
	Log        []logbook.Entry   `json:"log"`
}

func (a *app) runInspect(ctx context.Context, rawURL string, opts *inspectOptions) error {
	socials, err := parseSocials(opts.socials)
	if err != nil {
		return err
	}
	s := a.newSession()
	data, err := s.scrape(ctx, rawURL)
	if err != nil {
		return err
	}

	report := inspectReport{URL: data.URL, Title: data.Title}
	if data.Favicon != nil {
		report.Favicon = data.Favicon.String()
	}
	for _, m := range data.Metadata {
		mr := metaReport{Name: m.Name, Property: m.Property, Content: m.Content}
		if m.Image != nil {
			mr.Image = m.Image.String()
		}
		report.Metadata = append(report.Metadata, mr)
	}
	for _, img := range data.BodyImages {
		report.BodyImages = append(report.BodyImages, img.String())
	}

	report.Platforms = make([]platformReport, len(socials))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range socials {
		g.Go(func() error {
			pr, err := s.inspectPlatform(gctx, data, sc)
			if err != nil {
				return err
			}
			report.Platforms[i] = pr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	writeInspectText(a.stdout, report)
	return nil
}

// inspectPlatform checks every candidate sc would consider against the
// kinds the build uses for it, then builds the card with a full log.
func (s *session) inspectPlatform(ctx context.Context, data *page.Data, sc social.Social) (platformReport, error) {
	pr := platformReport{Social: sc.String()}

	type job struct {
		img   *media.Image
		kinds []social.SizeKind
	}
	var jobs []job
	metaKinds := card.MetaKinds(data, sc, nil)
	for _, img := range data.LookupMetaImages(sc.Lookups().Image, false) {
		jobs = append(jobs, job{img, metaKinds})
	}
	if sc.Platform().BodyImages {
		seen := make(map[*media.Image]bool, len(jobs))
		for _, j := range jobs {
			seen[j.img] = true
		}
		for _, img := range data.BodyImages {
			if !seen[img] {
				jobs = append(jobs, job{img, social.BodyKinds()})
			}
		}
	}
	pr.Candidates = make([]candidateReport, len(jobs))

	var g errgroup.Group
	g.SetLimit(max(s.app.cfg.CheckConcurrency, 1))
	for i, j := range jobs {
		g.Go(func() error {
			pr.Candidates[i] = checkCandidate(ctx, s.loader, j.img, sc, j.kinds)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return pr, err
	}

	rec := logbook.NewRecorder()
	b := card.NewBuilder(s.loader, logbook.Tee{rec, logbook.NewSlog(s.app.logger.With("social", sc.String()))})
	b.Concurrency = s.app.cfg.CheckConcurrency
	c, err := b.Build(ctx, data, sc)
	if ctx.Err() != nil {
		return pr, ctx.Err()
	}
	if err != nil {
		pr.Error = err.Error()
	} else {
		pr.Size = c.Size.String()
		pr.Title = c.Title
	}
	pr.Log = rec.Entries()
	return pr, nil
}

func checkCandidate(ctx context.Context, l *media.Loader, img *media.Image, sc social.Social, kinds []social.SizeKind) candidateReport {
	cr := candidateReport{URL: img.String()}
	kind, err := img.Check(ctx, l, sc, kinds, sc.Constraints())
	if b := img.Bytes(); b != nil {
		cr.Bytes = len(b)
		cr.Format = img.Format().String()
	}
	cr.Width, cr.Height = img.Size()
	if err != nil {
		cr.Error = err.Error()
		return cr
	}
	cr.Kind = kind.String()
	return cr
}

func writeInspectText(w io.Writer, r inspectReport) {
	fmt.Fprintf(w, "URL:     %s\n", r.URL)
	if r.Title != nil {
		fmt.Fprintf(w, "Title:   %s\n", *r.Title)
	}
	if r.Favicon != "" {
		fmt.Fprintf(w, "Favicon: %s\n", r.Favicon)
	}

	fmt.Fprintf(w, "\nMetadata (%d):\n", len(r.Metadata))
	for _, m := range r.Metadata {
		var key []string
		if m.Name != nil {
			key = append(key, "name="+*m.Name)
		}
		if len(m.Property) > 0 {
			key = append(key, "property="+strings.Join(m.Property, " "))
		}
		content := "(no content)"
		if m.Content != nil {
			content = fmt.Sprintf("%q", *m.Content)
		}
		fmt.Fprintf(w, "  %s: %s\n", strings.Join(key, " "), content)
	}

	if len(r.BodyImages) > 0 {
		fmt.Fprintf(w, "\nBody images (%d):\n", len(r.BodyImages))
		for _, img := range r.BodyImages {
			fmt.Fprintf(w, "  %s\n", img)
		}
	}

	for _, p := range r.Platforms {
		fmt.Fprintf(w, "\n[%s]\n", p.Social)
		if p.Error != "" {
			fmt.Fprintf(w, "  Card: error: %s\n", p.Error)
		} else {
			fmt.Fprintf(w, "  Card: %s %q\n", p.Size, p.Title)
		}
		for _, c := range p.Candidates {
			switch {
			case c.Error != "":
				fmt.Fprintf(w, "  - %s: rejected: %s\n", c.URL, c.Error)
			default:
				fmt.Fprintf(w, "  - %s: %s (%dx%d %s, %s)\n", c.URL, c.Kind, c.Width, c.Height, c.Format, fetch.HumanSize(int64(c.Bytes)))
			}
		}
		for _, e := range p.Log {
			fmt.Fprintf(w, "  %-7s %s\n", e.Level, e.Text)
		}
	}
}
