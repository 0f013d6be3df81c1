package card

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/adammathes/sharepreview/internal/logbook"
	"github.com/adammathes/sharepreview/internal/media"
	"github.com/adammathes/sharepreview/internal/page"
	"github.com/adammathes/sharepreview/internal/social"
)

const (
	faviconSize        = 32
	defaultConcurrency = 8
)

// Builder builds cards. It holds no per-build state and may be shared by
// concurrent builds.
type Builder struct {
	Loader *media.Loader
	Log    logbook.Log
	// Concurrency bounds simultaneous candidate checks per build.
	Concurrency int

	// thumbnail replaces Image.Thumbnail in tests.
	thumbnail func(ctx context.Context, img *media.Image, l *media.Loader, w, h int) ([]byte, error)
}

// NewBuilder returns a Builder using loader for image I/O and writing
// diagnostics to log.
func NewBuilder(loader *media.Loader, log logbook.Log) *Builder {
	return &Builder{Loader: loader, Log: log, Concurrency: defaultConcurrency}
}

// New builds the card for data on s with a one-off Builder.
func New(ctx context.Context, data *page.Data, s social.Social, loader *media.Loader, log logbook.Log) (*Card, error) {
	return NewBuilder(loader, log).Build(ctx, data, s)
}

func (b *Builder) thumb(ctx context.Context, img *media.Image, w, h int) ([]byte, error) {
	if b.thumbnail != nil {
		return b.thumbnail(ctx, img, b.Loader, w, h)
	}
	return img.Thumbnail(ctx, b.Loader, w, h)
}

func (b *Builder) logf(level logbook.Level, format string, args ...any) {
	logbook.Logf(b.Log, level, format, args...)
}

// Build synthesizes the card for data on s. It returns ErrTwitterNoCardFound
// or ErrNotEnoughData for pages the platform refuses, or the context error
// when ctx ends first.
func (b *Builder) Build(ctx context.Context, data *page.Data, s social.Social) (*Card, error) {
	p := s.Platform()
	lookups := s.Lookups()
	c := &Card{Social: s, Size: Small}

	c.Favicon = b.favicon(ctx, data)
	c.Site = b.site(data, p)

	title := data.LookupMeta(lookups.Title, b.Log)
	switch {
	case title != nil:
		c.Title = *title
	case data.Title != nil && strings.TrimSpace(*data.Title) != "":
		b.logf(logbook.Warning, "No title metadata, using the document title")
		c.Title = *data.Title
	default:
		b.logf(logbook.Warning, "No title found, using the site name")
		c.Title = c.Site
	}

	c.Description = data.LookupMeta(lookups.Description, b.Log)
	if c.Description == nil {
		b.logf(logbook.Info, "No description found")
	} else if p.ShortDescription > 0 && utf8.RuneCountInString(*c.Description) < p.ShortDescription {
		b.logf(logbook.Warning, "Description is shorter than %d characters", p.ShortDescription)
	}

	cardType := data.LookupMeta(lookups.Kind, b.Log)
	if p.RequiresCardType {
		if cardType == nil {
			b.logf(logbook.Error, "No card type found")
			return nil, ErrTwitterNoCardFound
		}
		if title == nil && c.Description == nil {
			b.logf(logbook.Error, "Neither title nor description metadata found")
			return nil, ErrNotEnoughData
		}
	}
	kinds := MetaKinds(data, s, b.Log)

	candidates := data.LookupMetaImages(lookups.Image, false)
	if img, size, ok := b.selectImage(ctx, s, candidates, kinds); ok {
		c.Image, c.Size = img, size
	} else if p.BodyImages && len(data.BodyImages) > 0 {
		if img, ok := b.bodyImage(ctx, s, data.BodyImages); ok {
			c.Image, c.Size = img, Medium
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.Image == nil {
		switch p.NoImage {
		case social.FallbackMediumIcon:
			b.logf(logbook.Info, "No image found, using a medium card with an icon")
			c.Size = Medium
		case social.FallbackIcon:
			b.logf(logbook.Info, "No image found, showing an icon")
		default:
			b.logf(logbook.Info, "No image found, showing text only")
		}
	}
	return c, nil
}

func (b *Builder) favicon(ctx context.Context, data *page.Data) []byte {
	if data.Favicon == nil {
		return nil
	}
	icon, err := data.Favicon.Thumbnail(ctx, b.Loader, faviconSize, faviconSize)
	if err != nil {
		b.logf(logbook.Debug, "Favicon unavailable: %v", err)
		return nil
	}
	return icon
}

func (b *Builder) site(data *page.Data, p social.Platform) string {
	site := data.Site()
	if p.UppercaseSite {
		site = strings.ToUpper(site)
	}
	if p.SiteNameTag == "" {
		return site
	}

	found := data.GetMeta(p.SiteNameTag)
	switch {
	case len(found) == 0 || found[0].Content == nil:
		b.logf(logbook.Info, "No %s tag, using %s", p.SiteNameTag, site)
	case strings.TrimSpace(*found[0].Content) == "":
		b.logf(logbook.Warning, "Tag %s is empty, using %s", p.SiteNameTag, site)
	default:
		b.logf(logbook.Debug, "Found %s: %q", p.SiteNameTag, *found[0].Content)
		site = *found[0].Content
	}
	return site
}

// MetaKinds returns the kinds, in priority order, that data's metadata
// images are checked against on s. Twitter reads them from twitter:card.
func MetaKinds(data *page.Data, s social.Social, log logbook.Log) []social.SizeKind {
	var cardType *string
	if tag := s.Platform().CardTypeTag; tag != "" {
		cardType = data.LookupMeta([]string{tag}, log)
	}
	return s.MetaKinds(cardType)
}

type checked struct {
	img  *media.Image
	kind social.SizeKind
	err  error
}

// selectImage checks every candidate, then thumbnails the best image of the
// first requested kind that has any. A failed thumbnail ends the selection.
func (b *Builder) selectImage(ctx context.Context, s social.Social, candidates []*media.Image, kinds []social.SizeKind) ([]byte, Size, bool) {
	if len(candidates) == 0 {
		b.logf(logbook.Info, "No metadata images found")
		return nil, 0, false
	}

	buckets := make(map[social.SizeKind][]*media.Image)
	for _, r := range b.checkAll(ctx, s, candidates, kinds) {
		if r.err != nil {
			b.reject(r.img, r.err)
			continue
		}
		b.logf(logbook.Debug, "Image %s qualifies as %s", r.img, r.kind)
		buckets[r.kind] = append(buckets[r.kind], r.img)
	}

	for _, kind := range kinds {
		bucket := buckets[kind]
		if len(bucket) == 0 {
			continue
		}
		chosen := largestRecommended(bucket, s.ImageSize(kind).Recommended)
		size := FromKind(kind)
		w, h := size.ImageSize()
		thumb, err := b.thumb(ctx, chosen, w, h)
		if err != nil {
			b.reject(chosen, err)
			return nil, 0, false
		}
		b.logf(logbook.Debug, "Selected %s as %s image", chosen, size)
		return thumb, size, true
	}
	return nil, 0, false
}

// checkAll runs Check on every candidate concurrently. Results keep the
// candidates' order.
func (b *Builder) checkAll(ctx context.Context, s social.Social, candidates []*media.Image, kinds []social.SizeKind) []checked {
	constraints := s.Constraints()
	results := make([]checked, len(candidates))

	var g errgroup.Group
	g.SetLimit(max(b.Concurrency, 1))
	for i, img := range candidates {
		g.Go(func() error {
			kind, err := img.Check(ctx, b.Loader, s, kinds, constraints)
			results[i] = checked{img: img, kind: kind, err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// largestRecommended returns the largest image meeting rec, the first of
// equals winning, or the first image when none meets it.
func largestRecommended(imgs []*media.Image, rec social.Dimensions) *media.Image {
	var best *media.Image
	bestArea := -1
	for _, img := range imgs {
		w, h := img.Size()
		d := social.Dimensions{Width: w, Height: h}
		if d.Covers(rec) && d.Area() > bestArea {
			best, bestArea = img, d.Area()
		}
	}
	if best == nil {
		return imgs[0]
	}
	return best
}

// bodyImage returns the thumbnail of the first body image, in document
// order, that qualifies as Medium.
func (b *Builder) bodyImage(ctx context.Context, s social.Social, imgs []*media.Image) ([]byte, bool) {
	kinds := social.BodyKinds()
	constraints := s.Constraints()
	w, h := Medium.ImageSize()
	for _, img := range imgs {
		if ctx.Err() != nil {
			return nil, false
		}
		if _, err := img.Check(ctx, b.Loader, s, kinds, constraints); err != nil {
			b.reject(img, err)
			continue
		}
		thumb, err := b.thumb(ctx, img, w, h)
		if err != nil {
			b.reject(img, err)
			return nil, false
		}
		b.logf(logbook.Debug, "Selected body image %s", img)
		return thumb, true
	}
	b.logf(logbook.Info, "No body image qualifies")
	return nil, false
}

func (b *Builder) reject(img *media.Image, err error) {
	b.logf(rejectionLevel(err), "Image %s rejected: %v", img, err)
}

// rejectionLevel grades a candidate failure: problems the page author can
// fix are warnings, transport and codec failures are errors.
func rejectionLevel(err error) logbook.Level {
	var (
		tiny  *media.TooTinyError
		heavy *media.TooHeavyError
	)
	switch {
	case media.IsCanceled(err):
		return logbook.Debug
	case errors.As(err, &tiny), errors.As(err, &heavy), errors.Is(err, media.ErrUnsupported):
		return logbook.Warning
	}
	return logbook.Error
}
