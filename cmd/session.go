package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adammathes/sharepreview/internal/card"
	"github.com/adammathes/sharepreview/internal/fetch"
	"github.com/adammathes/sharepreview/internal/logbook"
	"github.com/adammathes/sharepreview/internal/media"
	"github.com/adammathes/sharepreview/internal/page"
	"github.com/adammathes/sharepreview/internal/render"
	"github.com/adammathes/sharepreview/internal/scrape"
	"github.com/adammathes/sharepreview/internal/social"
)

// session wires one HTTP client into the scraper and the image loader so
// page and image requests share connections and settings.
type session struct {
	app     *app
	scraper *scrape.Scraper
	loader  *media.Loader
}

func (a *app) newSession() *session {
	client := fetch.NewClient(a.cfg.FetchOptions())
	loader := media.NewLoader(client, a.cfg.DecodeWorkers)
	loader.UserAgent = a.cfg.UserAgent
	loader.MaxBytes = a.cfg.MaxResponseBytes
	return &session{
		app:     a,
		scraper: scrape.New(client, a.cfg.UserAgent, a.cfg.MaxResponseBytes, a.logger),
		loader:  loader,
	}
}

func (s *session) scrape(ctx context.Context, rawURL string) (*page.Data, error) {
	data, err := s.scraper.Scrape(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", rawURL, err)
	}
	return data, nil
}

// buildAll builds a card per platform concurrently from the same data.
// Each build records its diagnostics and forwards them to the process
// logger tagged with a build ID. Results keep the order of socials; only
// cancellation fails the whole run.
func (s *session) buildAll(ctx context.Context, data *page.Data, socials []social.Social, keep logbook.Level, p *progress) ([]render.Result, error) {
	results := make([]render.Result, len(socials))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range socials {
		g.Go(func() error {
			rec := logbook.NewRecorder()
			logger := s.app.logger.With("build_id", uuid.NewString(), "social", sc.String())
			log := logbook.Tee{rec, logbook.NewSlog(logger)}

			b := card.NewBuilder(s.loader, log)
			b.Concurrency = s.app.cfg.CheckConcurrency
			c, err := b.Build(gctx, data, sc)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = render.Result{Social: sc, Card: c, Err: err, Log: rec.AtLeast(keep)}
			log.Flush()

			if err != nil {
				p.printf("  %-9s %v\n", sc, err)
			} else {
				p.printf("  %-9s %s card\n", sc, c.Size)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseSocials resolves platform names; "all" selects every platform.
// Duplicates are dropped and the order of first mention is kept.
func parseSocials(names []string) ([]social.Social, error) {
	var out []social.Social
	seen := make(map[social.Social]bool)
	add := func(s social.Social) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			for _, s := range social.All() {
				add(s)
			}
			continue
		}
		s, err := social.ParseSocial(name)
		if err != nil {
			return nil, err
		}
		add(s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no platform selected")
	}
	return out, nil
}
