// Package card synthesizes the link preview a platform would show for a
// scraped page. Missing tags, bad images and network failures only ever
// disqualify a candidate; the build itself fails in exactly two ways, both
// specific to Twitter.
package card

import (
	"errors"
	"fmt"

	"github.com/adammathes/sharepreview/internal/social"
)

var (
	// ErrNotEnoughData means neither a title nor a description was found in
	// the page metadata.
	ErrNotEnoughData = errors.New("not enough metadata to build a card")
	// ErrTwitterNoCardFound means the page declares no card type.
	ErrTwitterNoCardFound = errors.New("no twitter:card or og:type found")
)

// Size is the display class of a card.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

// FromKind maps an image size kind to the card size it produces.
func FromKind(k social.SizeKind) Size {
	switch k {
	case social.Large:
		return Large
	case social.Medium:
		return Medium
	}
	return Small
}

func (s Size) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	}
	return fmt.Sprintf("size(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ImageSize is the fixed thumbnail box for the size.
func (s Size) ImageSize() (width, height int) {
	switch s {
	case Medium:
		return 125, 125
	case Large:
		return 500, 250
	}
	return 64, 64
}

// IconSize is the edge of the placeholder icon for the size.
func (s Size) IconSize() int {
	switch s {
	case Medium:
		return 48
	case Large:
		return 64
	}
	return 32
}

// Card is the synthesized preview. Favicon and Image are PNG bytes.
type Card struct {
	Title       string
	Site        string
	Favicon     []byte
	Description *string
	Image       []byte
	Size        Size
	Social      social.Social
}

// ShowsIcon reports whether the platform draws a placeholder icon in
// place of the missing image.
func (c *Card) ShowsIcon() bool {
	return c.Image == nil && c.Social.Platform().NoImage.ShowsIcon()
}
