package social

import (
	"slices"
	"testing"
)

func TestParseSocial(t *testing.T) {
	for _, s := range All() {
		got, err := ParseSocial(s.String())
		if err != nil {
			t.Fatalf("ParseSocial(%q): %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseSocial(%q) = %v, want %v", s.String(), got, s)
		}
	}

	got, err := ParseSocial("  Twitter ")
	if err != nil || got != Twitter {
		t.Errorf("ParseSocial with spaces/case = %v, %v", got, err)
	}

	if _, err := ParseSocial("myspace"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestLookups_TwitterPrefersOwnTags(t *testing.T) {
	l := Twitter.Lookups()
	want := []string{"twitter:title", "og:title", "title"}
	if !equal(l.Title, want) {
		t.Errorf("Twitter title lookups = %v, want %v", l.Title, want)
	}
	if !equal(l.Kind, []string{"twitter:card", "og:type"}) {
		t.Errorf("Twitter kind lookups = %v", l.Kind)
	}
	if !equal(l.Image, []string{"twitter:image", "twitter:image:src", "og:image"}) {
		t.Errorf("Twitter image lookups = %v", l.Image)
	}
}

func TestLookups_MastodonOnlyOpenGraphImage(t *testing.T) {
	if got := Mastodon.Lookups().Image; !equal(got, []string{"og:image"}) {
		t.Errorf("Mastodon image lookups = %v, want [og:image]", got)
	}
}

func TestLookups_ReturnsCopy(t *testing.T) {
	l := Facebook.Lookups()
	l.Title[0] = "mutated"
	if Facebook.Lookups().Title[0] != "og:title" {
		t.Error("mutating returned lookups changed the platform table")
	}
}

func TestConstraints(t *testing.T) {
	tests := []struct {
		s        Social
		maxBytes int
	}{
		{Facebook, 8_000_000},
		{Twitter, 5_000_000},
		{Mastodon, 5_000_000},
		{LinkedIn, 5_000_000},
		{Discourse, 5_000_000},
	}
	for _, tt := range tests {
		c := tt.s.Constraints()
		if c.MaxBytes != tt.maxBytes {
			t.Errorf("%v max bytes = %d, want %d", tt.s, c.MaxBytes, tt.maxBytes)
		}
		for _, f := range []ImageFormat{PNG, JPEG, GIF, WebP} {
			if !c.Allows(f) {
				t.Errorf("%v should allow %v", tt.s, f)
			}
		}
		for _, f := range []ImageFormat{BMP, TIFF, ICO, AVIF, FormatUnknown} {
			if c.Allows(f) {
				t.Errorf("%v should not allow %v", tt.s, f)
			}
		}
	}
}

func TestImageSize(t *testing.T) {
	tests := []struct {
		s    Social
		kind SizeKind
		min  Dimensions
	}{
		{Twitter, Large, Dimensions{300, 157}},
		{Twitter, Medium, Dimensions{144, 144}},
		{Facebook, Large, Dimensions{600, 315}},
		{Facebook, Medium, Dimensions{200, 200}},
		{Mastodon, Small, Dimensions{32, 32}},
		{Mastodon, Large, Dimensions{32, 32}},
		{Discourse, Small, Dimensions{32, 32}},
	}
	for _, tt := range tests {
		got := tt.s.ImageSize(tt.kind)
		if got.Minimum != tt.min {
			t.Errorf("%v %v minimum = %v, want %v", tt.s, tt.kind, got.Minimum, tt.min)
		}
		if !got.Recommended.Covers(got.Minimum) {
			t.Errorf("%v %v recommended %v below minimum %v", tt.s, tt.kind, got.Recommended, got.Minimum)
		}
	}
}

func TestPlatformFlags(t *testing.T) {
	if !Facebook.Platform().BodyImages || !LinkedIn.Platform().BodyImages {
		t.Error("Facebook and LinkedIn should fall back to body images")
	}
	for _, s := range []Social{Twitter, Mastodon, Discourse} {
		if s.Platform().BodyImages {
			t.Errorf("%v should not use body images", s)
		}
	}
	if !Mastodon.Platform().LandscapeLarge {
		t.Error("Mastodon Large should require landscape images")
	}
	if !Twitter.Platform().RequiresCardType {
		t.Error("Twitter should require a card type")
	}
	if p := Twitter.Platform(); p.CardTypeTag != "twitter:card" || p.LargeCardType != "summary_large_image" {
		t.Errorf("Twitter card type rule = %q/%q", p.CardTypeTag, p.LargeCardType)
	}
	if Twitter.Kinds() != nil {
		t.Errorf("Twitter kinds should be decided per page, got %v", Twitter.Kinds())
	}
}

func TestDimensionsCovers(t *testing.T) {
	min := Dimensions{300, 157}
	if !(Dimensions{400, 300}).Covers(min) {
		t.Error("400x300 should cover 300x157")
	}
	if (Dimensions{299, 500}).Covers(min) {
		t.Error("299x500 should not cover 300x157")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMetaKinds(t *testing.T) {
	large, summary := "summary_large_image", "summary"
	tests := []struct {
		s        Social
		cardType *string
		want     []SizeKind
	}{
		{Facebook, nil, []SizeKind{Large, Medium}},
		{Facebook, &summary, []SizeKind{Large, Medium}},
		{LinkedIn, nil, []SizeKind{Large, Small}},
		{Mastodon, &large, []SizeKind{Small}},
		{Twitter, &large, []SizeKind{Large, Medium}},
		{Twitter, &summary, []SizeKind{Medium}},
		{Twitter, nil, []SizeKind{Medium}},
	}
	for _, tt := range tests {
		got := tt.s.MetaKinds(tt.cardType)
		if !slices.Equal(got, tt.want) {
			t.Errorf("%v.MetaKinds(%v) = %v, want %v", tt.s, tt.cardType, got, tt.want)
		}
	}
	if got := BodyKinds(); !slices.Equal(got, []SizeKind{Medium}) {
		t.Errorf("BodyKinds = %v", got)
	}
}

func TestFallback(t *testing.T) {
	want := map[Social]Fallback{
		Facebook:  FallbackText,
		Mastodon:  FallbackIcon,
		Twitter:   FallbackMediumIcon,
		LinkedIn:  FallbackText,
		Discourse: FallbackText,
	}
	for s, f := range want {
		if got := s.Platform().NoImage; got != f {
			t.Errorf("%v NoImage = %v, want %v", s, got, f)
		}
		if got := s.Platform().NoImage.ShowsIcon(); got != (f != FallbackText) {
			t.Errorf("%v ShowsIcon = %v", s, got)
		}
	}
}
