// Package scrape downloads a web page and extracts the parts a link preview
// is built from: title, <meta> tags, favicon and raster body images.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	readability "codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/adammathes/sharepreview/internal/fetch"
	"github.com/adammathes/sharepreview/internal/media"
	"github.com/adammathes/sharepreview/internal/page"
	"github.com/adammathes/sharepreview/internal/social"
)

// FetchError is a transport failure while downloading the page.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer for the page.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Code, e.URL)
}

// Scraper fetches pages through an injected client.
type Scraper struct {
	client    media.Doer
	userAgent string
	maxBytes  int64
	log       *slog.Logger
}

// New returns a Scraper. A nil logger uses slog.Default().
func New(client media.Doer, userAgent string, maxBytes int64, logger *slog.Logger) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = fetch.DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{client: client, userAgent: userAgent, maxBytes: maxBytes, log: logger}
}

// Scrape downloads rawURL and parses it. Redirects are followed and
// relative URLs resolve against the final location.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*page.Data, error) {
	pageURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: pageURL.String(), Code: resp.StatusCode}
	}

	body, err := fetch.ReadLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, &FetchError{URL: pageURL.String(), Err: fmt.Errorf("reading response: %w", err)}
	}
	s.log.Debug("fetched page", "url", pageURL.String(), "size", fetch.HumanSize(int64(len(body))))

	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}
	utf8Body, err := toUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		s.log.Warn("charset conversion failed, using raw body", "url", pageURL.String(), "error", err)
		utf8Body = body
	}
	return Parse(utf8Body, pageURL)
}

// NormalizeURL parses rawURL, defaulting to https when no scheme is given.
func NormalizeURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return u, nil
}

func toUTF8(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Parse extracts page data from a UTF-8 HTML document served at pageURL.
func Parse(body []byte, pageURL *url.URL) (*page.Data, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	data := &page.Data{URL: pageURL.String()}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		data.Title = &title
	} else if title := readableTitle(body, pageURL); title != "" {
		data.Title = &title
	}

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		if m, ok := parseMeta(sel, pageURL); ok {
			data.Metadata = append(data.Metadata, m)
		}
	})

	data.Favicon = favicon(doc, pageURL)

	doc.Find("body img").Each(func(_ int, sel *goquery.Selection) {
		src := imgSource(sel)
		if src == "" || !looksRaster(src) {
			return
		}
		if img, err := media.New(src, pageURL); err == nil && looksRaster(img.URL.String()) {
			data.BodyImages = append(data.BodyImages, img)
		}
	})

	return data, nil
}

// readableTitle asks readability for a title when the document has no
// <title> element.
func readableTitle(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.Title)
}

func parseMeta(sel *goquery.Selection, pageURL *url.URL) (page.Meta, bool) {
	var m page.Meta
	if name, ok := sel.Attr("name"); ok {
		name = strings.TrimSpace(name)
		m.Name = &name
	}
	if prop, ok := sel.Attr("property"); ok {
		m.Property = strings.Fields(prop)
	}
	if m.Name == nil && len(m.Property) == 0 {
		return m, false
	}
	if content, ok := sel.Attr("content"); ok {
		content = strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
		m.Content = &content
		if content != "" && carriesImage(m) {
			if img, err := media.New(content, pageURL); err == nil {
				m.Image = img
			}
		}
	}
	return m, true
}

var imageTags = func() map[string]bool {
	tags := map[string]bool{"og:image:url": true, "og:image:secure_url": true}
	for _, s := range social.All() {
		for _, name := range s.Lookups().Image {
			tags[name] = true
		}
	}
	return tags
}()

func carriesImage(m page.Meta) bool {
	for name := range imageTags {
		if m.Matches(name) {
			return true
		}
	}
	return false
}

// favicon returns the first <link rel="icon"> target, or /favicon.ico.
func favicon(doc *goquery.Document, pageURL *url.URL) *media.Image {
	href := ""
	doc.Find("link[rel][href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rel, _ := sel.Attr("rel")
		for _, token := range strings.Fields(strings.ToLower(rel)) {
			if token == "icon" {
				href, _ = sel.Attr("href")
				return false
			}
		}
		return true
	})
	if strings.TrimSpace(href) == "" {
		href = "/favicon.ico"
	}
	img, err := media.New(href, pageURL)
	if err != nil {
		return nil
	}
	return img
}

// imgSource prefers src and falls back to lazy-loading attributes when src
// is missing or an inline placeholder.
func imgSource(sel *goquery.Selection) string {
	src := strings.TrimSpace(sel.AttrOr("src", ""))
	if src == "" || strings.HasPrefix(src, "data:image/svg") {
		if lazy := strings.TrimSpace(sel.AttrOr("data-src", "")); lazy != "" {
			return lazy
		}
	}
	return src
}

var rasterExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// looksRaster reports whether src names a raster image by extension or by
// the media type of a data: URL.
func looksRaster(src string) bool {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		for _, mt := range []string{"data:image/png", "data:image/jpeg", "data:image/gif", "data:image/webp"} {
			if strings.HasPrefix(lower, mt) {
				return true
			}
		}
		return false
	}
	if u, err := url.Parse(src); err == nil {
		lower = strings.ToLower(u.Path)
	}
	return rasterExts[path.Ext(lower)]
}
