// Package media models one candidate image of a link preview: an absolute
// http(s) or inline data: URL whose bytes, format and dimensions are
// learned lazily and at most once.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	_ "github.com/sergeymakinen/go-ico"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/adammathes/sharepreview/internal/social"
)

// maxPixels rejects images whose header announces more pixels than a
// preview could ever need, before any pixel buffer is allocated.
const maxPixels = 64 << 20

// Image is one candidate image. The exported fields are fixed at
// construction; fetch and decode results are write-once and shared by
// concurrent callers.
type Image struct {
	URL         *url.URL
	BaseURL     *url.URL
	WasRelative bool

	raw     string
	payload memo[payload]
	// bounds records a successful full decode. Pixels are not kept; a
	// thumbnail decodes again.
	bounds memo[social.Dimensions]

	mu   sync.Mutex
	dims social.Dimensions
}

type payload struct {
	data   []byte
	format social.ImageFormat
}

// New resolves raw against base. Absolute URLs are kept as they are;
// relative ones need an absolute base.
func New(raw string, base *url.URL) (*Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &URLError{Raw: raw, Err: errors.New("empty URL")}
	}
	if isDataURL(raw) {
		return &Image{
			URL:     &url.URL{Scheme: "data", Opaque: raw[len("data:"):]},
			BaseURL: base,
			raw:     raw,
		}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, &URLError{Raw: raw, Err: err}
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, &URLError{Raw: raw, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
		}
		return &Image{URL: u, BaseURL: base, raw: u.String()}, nil
	}
	if base == nil || !base.IsAbs() {
		return nil, &URLError{Raw: raw, Err: errors.New("relative URL without an absolute base")}
	}
	resolved := base.ResolveReference(u)
	return &Image{URL: resolved, BaseURL: base, WasRelative: true, raw: resolved.String()}, nil
}

func isDataURL(s string) bool {
	return len(s) > 5 && strings.EqualFold(s[:5], "data:")
}

// String returns the URL, shortening inline payloads.
func (img *Image) String() string {
	if img.URL.Scheme == "data" {
		head, _, _ := strings.Cut(img.raw, ",")
		return fmt.Sprintf("%s,… (%d bytes)", head, len(img.raw))
	}
	return img.raw
}

// Fetch returns the image bytes, downloading or decoding the data: URL on
// first use. Later calls return the same result without new I/O.
func (img *Image) Fetch(ctx context.Context, l *Loader) ([]byte, error) {
	p, err := img.fetch(ctx, l)
	return p.data, err
}

func (img *Image) fetch(ctx context.Context, l *Loader) (payload, error) {
	return img.payload.get(ctx, func() (payload, error) {
		var (
			data []byte
			err  error
		)
		if img.URL.Scheme == "data" {
			data, err = decodeDataURL(img.raw)
		} else {
			data, err = l.get(ctx, img.raw)
		}
		if err != nil {
			return payload{}, err
		}

		format, mime := sniff(data)
		if format == social.FormatUnknown {
			return payload{}, &DecodeError{Err: fmt.Errorf("unrecognized image data (%s)", mime)}
		}
		return payload{data: data, format: format}, nil
	})
}

func decodeDataURL(raw string) ([]byte, error) {
	du, err := dataurl.DecodeString(raw)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, &DataURLError{Err: fmt.Errorf("%w: %v", ErrInvalidBase64, err)}
		}
		return nil, &DataURLError{Err: err}
	}
	return du.Data, nil
}

var mimeFormats = []struct {
	mime   string
	format social.ImageFormat
}{
	{"image/png", social.PNG},
	{"image/jpeg", social.JPEG},
	{"image/gif", social.GIF},
	{"image/webp", social.WebP},
	{"image/bmp", social.BMP},
	{"image/tiff", social.TIFF},
	{"image/x-icon", social.ICO},
	{"image/avif", social.AVIF},
}

// sniff identifies the format from magic bytes, ignoring any declared
// content type.
func sniff(data []byte) (social.ImageFormat, string) {
	m := mimetype.Detect(data)
	for _, mf := range mimeFormats {
		if m.Is(mf.mime) {
			return mf.format, m.String()
		}
	}
	return social.FormatUnknown, m.String()
}

// Check fetches the image if needed and reports the first of kinds it
// qualifies for on s. It enforces in order the byte limit, the format
// allow-list, decodability and the per-kind minimum dimensions.
func (img *Image) Check(ctx context.Context, l *Loader, s social.Social, kinds []social.SizeKind, c social.Constraints) (social.SizeKind, error) {
	p, err := img.fetch(ctx, l)
	if err != nil {
		return 0, err
	}
	if c.MaxBytes > 0 && len(p.data) > c.MaxBytes {
		return 0, &TooHeavyError{Actual: len(p.data), Max: c.MaxBytes}
	}
	if !c.Allows(p.format) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, p.format)
	}

	dims, err := img.measure(ctx, l)
	if err != nil {
		return 0, err
	}
	img.mu.Lock()
	img.dims = dims
	img.mu.Unlock()

	if len(kinds) == 0 {
		return 0, fmt.Errorf("%w: no size kinds requested", ErrUnexpected)
	}
	landscapeLarge := s.Platform().LandscapeLarge
	var need social.Dimensions
	for _, kind := range kinds {
		need = s.ImageSize(kind).Minimum
		if !dims.Covers(need) {
			continue
		}
		if kind == social.Large && landscapeLarge && dims.Width <= dims.Height {
			continue
		}
		return kind, nil
	}
	return 0, &TooTinyError{Actual: dims, Min: need}
}

// measure decodes the image once to prove it decodable and keeps only its
// dimensions.
func (img *Image) measure(ctx context.Context, l *Loader) (social.Dimensions, error) {
	p, err := img.fetch(ctx, l)
	if err != nil {
		return social.Dimensions{}, err
	}
	return img.bounds.get(ctx, func() (social.Dimensions, error) {
		return run(ctx, l.pool(), func() (social.Dimensions, error) {
			src, err := decodePixels(p.data)
			if err != nil {
				return social.Dimensions{}, err
			}
			b := src.Bounds()
			return social.Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
		})
	})
}

// decodePixels decodes data after checking the header against maxPixels.
func decodePixels(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, &DecodeError{Err: fmt.Errorf("refusing to decode %dx%d image", cfg.Width, cfg.Height)}
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return src, nil
}

// Thumbnail returns the image cropped around its center to the aspect
// ratio of w×h, scaled to exactly w×h and encoded as PNG.
func (img *Image) Thumbnail(ctx context.Context, l *Loader, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: thumbnail box %dx%d", ErrUnexpected, w, h)
	}
	if _, err := img.measure(ctx, l); err != nil {
		return nil, err
	}
	p, _ := img.payload.peek()
	return run(ctx, l.pool(), func() ([]byte, error) {
		src, err := decodePixels(p.data)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, cropFill(src, w, h)); err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("encoding thumbnail: %w", err)}
		}
		return buf.Bytes(), nil
	})
}

// cropFill crops src to the largest centered rectangle with the aspect
// ratio of w×h and scales it into a new w×h image.
func cropFill(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	cw, ch := sw, sh
	if sw*h > sh*w {
		cw = max(sh*w/h, 1)
	} else {
		ch = max(sw*h/w, 1)
	}
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y + (sh-ch)/2

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cw, y0+ch), xdraw.Src, nil)
	return dst
}

// Size returns the pixel dimensions learned by Check, or (0, 0) before
// any check. It never fetches.
func (img *Image) Size() (int, int) {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.dims.Width, img.dims.Height
}

// Format returns the sniffed format, or FormatUnknown before a successful
// fetch.
func (img *Image) Format() social.ImageFormat {
	p, _ := img.payload.peek()
	return p.format
}

// Bytes returns the fetched payload, or nil before a successful fetch.
func (img *Image) Bytes() []byte {
	p, _ := img.payload.peek()
	return p.data
}
