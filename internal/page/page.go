// Package page is the scraped representation of a web page that cards are
// built from. Values are built once by the scraper and only read afterwards,
// so one Data can back concurrent builds for several platforms.
package page

import (
	"net/url"
	"slices"

	"github.com/adammathes/sharepreview/internal/logbook"
	"github.com/adammathes/sharepreview/internal/media"
)

// Meta is one <meta> element. Name and Content are nil when the attribute
// is absent, which is distinct from present but empty.
type Meta struct {
	Name     *string
	Property []string
	Content  *string
	// Image is set when Content is an image URL that resolved.
	Image *media.Image
}

// Matches reports whether the name attribute or one of the properties
// equals name exactly.
func (m *Meta) Matches(name string) bool {
	if m.Name != nil && *m.Name == name {
		return true
	}
	return slices.Contains(m.Property, name)
}

// Data is a scraped page. Metadata and BodyImages are in document order.
type Data struct {
	URL        string
	Title      *string
	Favicon    *media.Image
	Metadata   []Meta
	BodyImages []*media.Image
}

// Site is the host of the page URL, or the URL itself when it has none.
func (d *Data) Site() string {
	if u, err := url.Parse(d.URL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return d.URL
}

// GetMeta returns every entry matching name, in document order.
func (d *Data) GetMeta(name string) []*Meta {
	var out []*Meta
	for i := range d.Metadata {
		if d.Metadata[i].Matches(name) {
			out = append(out, &d.Metadata[i])
		}
	}
	return out
}

// LookupMeta returns the content of the first occurrence of the first name
// in names that has non-empty content. Priority order wins over document
// order. Empty matches are logged and skipped.
func (d *Data) LookupMeta(names []string, log logbook.Log) *string {
	for _, name := range names {
		found := d.GetMeta(name)
		if len(found) == 0 {
			logbook.Logf(log, logbook.Debug, "No %s tag", name)
			continue
		}
		content := found[0].Content
		if content == nil {
			continue
		}
		if *content == "" {
			logbook.Logf(log, logbook.Info, "Tag %s is empty, skipping", name)
			continue
		}
		logbook.Logf(log, logbook.Debug, "Found %s: %q", name, *content)
		v := *content
		return &v
	}
	return nil
}

// LookupMetaImages collects the images of every entry matching each name,
// names in priority order and entries in document order. With includeBody
// the body images follow. An entry matching several names is listed once.
func (d *Data) LookupMetaImages(names []string, includeBody bool) []*media.Image {
	var out []*media.Image
	seen := make(map[*media.Image]bool)
	add := func(img *media.Image) {
		if img != nil && !seen[img] {
			seen[img] = true
			out = append(out, img)
		}
	}
	for _, name := range names {
		for _, m := range d.GetMeta(name) {
			add(m.Image)
		}
	}
	if includeBody {
		for _, img := range d.BodyImages {
			add(img)
		}
	}
	return out
}
