// Package social holds the per-platform rule tables used to build link
// preview cards: which meta tags to read, image payload constraints and
// the pixel dimensions each card layout needs.
package social

import (
	"fmt"
	"strings"
)

// Social identifies a platform whose link previews are emulated.
type Social int

const (
	Facebook Social = iota
	Mastodon
	Twitter
	LinkedIn
	Discourse
)

// All returns every supported platform in display order.
func All() []Social {
	return []Social{Facebook, Mastodon, Twitter, LinkedIn, Discourse}
}

// String returns the lowercase platform identifier.
func (s Social) String() string {
	if p := s.platform(); p != nil {
		return p.Name
	}
	return fmt.Sprintf("social(%d)", int(s))
}

// ParseSocial maps a platform identifier back to its Social value.
func ParseSocial(name string) (Social, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range All() {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown social platform %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Social) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Lookups returns the meta-tag priority lists for the platform.
func (s Social) Lookups() Lookups {
	l := s.mustPlatform().Lookups
	return Lookups{
		Title:       append([]string(nil), l.Title...),
		Description: append([]string(nil), l.Description...),
		Image:       append([]string(nil), l.Image...),
		Kind:        append([]string(nil), l.Kind...),
	}
}

// Constraints returns the image payload constraints for the platform.
func (s Social) Constraints() Constraints {
	c := s.mustPlatform().Constraints
	c.Formats = append([]ImageFormat(nil), c.Formats...)
	return c
}

// ImageSize returns the minimum and recommended dimensions an image needs
// to qualify for kind on this platform.
func (s Social) ImageSize(kind SizeKind) ImageSize {
	return s.mustPlatform().Sizes[kind]
}

// Kinds returns the size kinds, in priority order, that metadata images are
// checked against. Twitter decides its kinds per page and returns nil.
func (s Social) Kinds() []SizeKind {
	return append([]SizeKind(nil), s.mustPlatform().Kinds...)
}

// MetaKinds returns the kinds metadata images are checked against on a page
// whose CardTypeTag holds cardType (nil when the tag is absent). Platforms
// with fixed Kinds ignore cardType.
func (s Social) MetaKinds(cardType *string) []SizeKind {
	p := s.mustPlatform()
	if len(p.Kinds) > 0 {
		return append([]SizeKind(nil), p.Kinds...)
	}
	if cardType != nil && *cardType == p.LargeCardType {
		return []SizeKind{Large, Medium}
	}
	return []SizeKind{Medium}
}

// BodyKinds returns the kinds body images are checked against.
func BodyKinds() []SizeKind {
	return []SizeKind{Medium}
}

// Platform exposes the full capability table for s.
func (s Social) Platform() Platform {
	return *s.mustPlatform()
}

func (s Social) mustPlatform() *Platform {
	p := s.platform()
	if p == nil {
		panic(fmt.Sprintf("social: no platform table for %d", int(s)))
	}
	return p
}

func (s Social) platform() *Platform {
	if int(s) < 0 || int(s) >= len(platforms) {
		return nil
	}
	return &platforms[s]
}

// Lookups lists meta-tag identifiers to search, most specific first.
type Lookups struct {
	Title       []string
	Description []string
	Image       []string
	Kind        []string
}

// Constraints bounds the payload of a candidate image.
type Constraints struct {
	MaxBytes int
	Formats  []ImageFormat
}

// Allows reports whether f is in the allow-list.
func (c Constraints) Allows(f ImageFormat) bool {
	for _, allowed := range c.Formats {
		if allowed == f {
			return true
		}
	}
	return false
}
