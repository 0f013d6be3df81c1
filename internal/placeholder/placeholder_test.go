package placeholder

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
)

func TestIcon_Basic(t *testing.T) {
	for _, size := range []int{32, 48, 64} {
		data, err := Icon("example.com", size)
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("invalid PNG: %v", err)
		}
		if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
			t.Errorf("icon is %dx%d, want %dx%d", b.Dx(), b.Dy(), size, size)
		}
	}
}

func TestIcon_Deterministic(t *testing.T) {
	a, err := Icon("Example News", 48)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Icon("Example News", 48)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same site should produce identical icons")
	}
}

func TestIcon_DifferentSites(t *testing.T) {
	a, _ := Icon("alpha.example", 48)
	b, _ := Icon("beta.example", 48)
	if bytes.Equal(a, b) {
		t.Error("different sites should produce different icons")
	}
}

func TestIcon_DrawsInitial(t *testing.T) {
	data, err := Icon("mastodon.social", 64)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	bg := Tint("mastodon.social")
	corner := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if corner != bg {
		t.Errorf("corner = %v, want background %v", corner, bg)
	}
	white := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA); c.R == 0xFF && c.G == 0xFF && c.B == 0xFF {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("expected the initial to be drawn in white")
	}
}

func TestIcon_NoInitial(t *testing.T) {
	data, err := Icon("---", 32)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	bg := Tint("---")
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA); c != bg {
				t.Fatalf("pixel (%d,%d) = %v, want plain background", x, y, c)
			}
		}
	}
}

func TestIcon_InvalidSize(t *testing.T) {
	if _, err := Icon("example.com", 0); err == nil {
		t.Error("expected error for zero size")
	}
}

func TestInitial(t *testing.T) {
	tests := []struct {
		site string
		want rune
	}{
		{"www.example.com", 'E'},
		{"EXAMPLE.COM", 'E'},
		{"  news.ycombinator.com", 'N'},
		{"9gag.com", '9'},
		{"élan.fr", 'É'},
		{"", 0},
		{"...", 0},
	}
	for _, tt := range tests {
		if got := Initial(tt.site); got != tt.want {
			t.Errorf("Initial(%q) = %q, want %q", tt.site, got, tt.want)
		}
	}
}

func TestTint_CaseInsensitive(t *testing.T) {
	if Tint("Example.com") != Tint("EXAMPLE.COM") {
		t.Error("tint should ignore case")
	}
	c := Tint("example.com")
	for _, ch := range []uint8{c.R, c.G, c.B} {
		if ch < 0x40 || ch > 0xB0 {
			t.Errorf("channel %#x outside 0x40..0xB0", ch)
		}
	}
}
