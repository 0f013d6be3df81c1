// Package placeholder draws the icon shown in place of a missing card image
// on platforms that show one. The icon is a square tinted from a hash of the
// site name with the site's initial drawn in the centre.
package placeholder

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	boldFont     *opentype.Font
	boldFontErr  error
	boldFontOnce sync.Once
)

func loadFont() (*opentype.Font, error) {
	boldFontOnce.Do(func() {
		boldFont, boldFontErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldFontErr
}

// Icon returns a size×size PNG for site. The same site always yields the
// same bytes.
func Icon(site string, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(Tint(site)), image.Point{}, draw.Src)

	if r := Initial(site); r != 0 {
		f, err := loadFont()
		if err != nil {
			return nil, fmt.Errorf("loading bold font: %w", err)
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    float64(size) * 0.6,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("creating font face: %w", err)
		}
		defer face.Close()
		drawCentered(img, string(r), face)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding icon PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Tint derives a mid-saturation background colour from site. Channels stay
// within 0x40..0xB0 so white text reads on every tint.
func Tint(site string) color.NRGBA {
	hash := sha256.Sum256([]byte(strings.ToLower(site)))
	ch := func(b byte) uint8 { return uint8(0x40 + int(b)*(0xB0-0x40)/255) }
	return color.NRGBA{R: ch(hash[0]), G: ch(hash[1]), B: ch(hash[2]), A: 0xFF}
}

// Initial is the upper-cased first letter or digit of site, ignoring a
// leading "www.". It is 0 when site has none.
func Initial(site string) rune {
	site = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(site)), "www.")
	for _, r := range site {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
	}
	return 0
}

func drawCentered(img *image.NRGBA, s string, face font.Face) {
	bounds, advance := font.BoundString(face, s)
	size := img.Bounds().Dx()
	m := face.Metrics()

	x := fixed.I(size)/2 - advance/2
	// Centre the glyph's ink box vertically around the midline.
	inkH := bounds.Max.Y - bounds.Min.Y
	y := fixed.I(size)/2 + inkH/2 - bounds.Max.Y
	if inkH <= 0 {
		y = fixed.I(size)/2 + (m.Ascent-m.Descent)/2
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(s)
}
