package social

import "fmt"

// SizeKind is an abstract bucket a candidate image can satisfy.
type SizeKind int

const (
	Small SizeKind = iota
	Medium
	Large
)

func (k SizeKind) String() string {
	switch k {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Dimensions is a width × height pair in pixels.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Covers reports whether d is at least as wide and as tall as min.
func (d Dimensions) Covers(min Dimensions) bool {
	return d.Width >= min.Width && d.Height >= min.Height
}

// Area is width times height.
func (d Dimensions) Area() int {
	return d.Width * d.Height
}

// ImageSize pairs the minimum a platform accepts for a kind with the size
// it recommends.
type ImageSize struct {
	Minimum     Dimensions
	Recommended Dimensions
}

// ImageFormat is a raster format recognized by magic-byte sniffing.
type ImageFormat int

const (
	FormatUnknown ImageFormat = iota
	PNG
	JPEG
	GIF
	WebP
	BMP
	TIFF
	ICO
	AVIF
)

var formatNames = map[ImageFormat]string{
	FormatUnknown: "unknown",
	PNG:           "png",
	JPEG:          "jpeg",
	GIF:           "gif",
	WebP:          "webp",
	BMP:           "bmp",
	TIFF:          "tiff",
	ICO:           "ico",
	AVIF:          "avif",
}

func (f ImageFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Fallback describes what a platform shows when no image qualifies.
type Fallback int

const (
	// FallbackText renders a text-only card.
	FallbackText Fallback = iota
	// FallbackIcon renders a placeholder icon next to the text.
	FallbackIcon
	// FallbackMediumIcon renders the icon in a Medium-sized card.
	FallbackMediumIcon
)

// ShowsIcon reports whether f draws a placeholder icon.
func (f Fallback) ShowsIcon() bool {
	return f == FallbackIcon || f == FallbackMediumIcon
}

// Platform is the capability table of one platform. Adding a platform is
// a new entry in platforms, not a new branch in the card builder.
type Platform struct {
	Name        string
	Lookups     Lookups
	Constraints Constraints
	Sizes       map[SizeKind]ImageSize
	// Kinds are checked in order against metadata images. Empty when the
	// kinds depend on the page (Twitter's twitter:card).
	Kinds []SizeKind

	UppercaseSite bool
	// SiteNameTag, when set, overrides the displayed site from that tag.
	SiteNameTag string
	// BodyImages lets <img> elements stand in when no meta image qualifies.
	BodyImages bool
	// LandscapeLarge requires width > height for the Large kind.
	LandscapeLarge bool
	// RequiresCardType fails the build when no kind tag is found, and
	// requires a title or description from metadata.
	RequiresCardType bool
	// CardTypeTag is read when Kinds is empty: a value of LargeCardType
	// requests Large ahead of Medium, anything else Medium only.
	CardTypeTag   string
	LargeCardType string
	// ShortDescription warns when the description is shorter than this
	// many characters. Zero disables the warning.
	ShortDescription int
	NoImage          Fallback
}

const (
	defaultMaxBytes  = 5_000_000
	facebookMaxBytes = 8_000_000
)

var (
	rasterFormats = []ImageFormat{PNG, JPEG, GIF, WebP}

	defaultLookups = Lookups{
		Title:       []string{"og:title", "twitter:title", "title"},
		Description: []string{"og:description", "twitter:description", "description"},
		Image:       []string{"og:image", "twitter:image", "twitter:image:src"},
		Kind:        []string{"og:type"},
	}
)

func uniform(min, rec Dimensions) map[SizeKind]ImageSize {
	s := ImageSize{Minimum: min, Recommended: rec}
	return map[SizeKind]ImageSize{Small: s, Medium: s, Large: s}
}

var platforms = [...]Platform{
	Facebook: {
		Name:        "facebook",
		Lookups:     defaultLookups,
		Constraints: Constraints{MaxBytes: facebookMaxBytes, Formats: rasterFormats},
		Sizes: map[SizeKind]ImageSize{
			Large:  {Minimum: Dimensions{600, 315}, Recommended: Dimensions{1200, 630}},
			Medium: {Minimum: Dimensions{200, 200}, Recommended: Dimensions{600, 600}},
			Small:  {Minimum: Dimensions{200, 200}, Recommended: Dimensions{200, 200}},
		},
		Kinds:         []SizeKind{Large, Medium},
		UppercaseSite: true,
		BodyImages:    true,
		NoImage:       FallbackText,
	},
	Mastodon: {
		Name: "mastodon",
		Lookups: Lookups{
			Title:       defaultLookups.Title,
			Description: defaultLookups.Description,
			Image:       []string{"og:image"},
			Kind:        defaultLookups.Kind,
		},
		Constraints:    Constraints{MaxBytes: defaultMaxBytes, Formats: rasterFormats},
		Sizes:          uniform(Dimensions{32, 32}, Dimensions{400, 400}),
		Kinds:          []SizeKind{Small},
		SiteNameTag:    "og:site_name",
		LandscapeLarge: true,
		NoImage:        FallbackIcon,
	},
	Twitter: {
		Name: "twitter",
		Lookups: Lookups{
			Title:       []string{"twitter:title", "og:title", "title"},
			Description: []string{"twitter:description", "og:description"},
			Image:       []string{"twitter:image", "twitter:image:src", "og:image"},
			Kind:        []string{"twitter:card", "og:type"},
		},
		Constraints: Constraints{MaxBytes: defaultMaxBytes, Formats: rasterFormats},
		Sizes: map[SizeKind]ImageSize{
			Large:  {Minimum: Dimensions{300, 157}, Recommended: Dimensions{1200, 628}},
			Medium: {Minimum: Dimensions{144, 144}, Recommended: Dimensions{300, 300}},
			Small:  {Minimum: Dimensions{144, 144}, Recommended: Dimensions{144, 144}},
		},
		RequiresCardType: true,
		CardTypeTag:      "twitter:card",
		LargeCardType:    "summary_large_image",
		NoImage:          FallbackMediumIcon,
	},
	LinkedIn: {
		Name:        "linkedin",
		Lookups:     defaultLookups,
		Constraints: Constraints{MaxBytes: defaultMaxBytes, Formats: rasterFormats},
		Sizes: map[SizeKind]ImageSize{
			Large:  {Minimum: Dimensions{401, 209}, Recommended: Dimensions{1200, 627}},
			Medium: {Minimum: Dimensions{200, 200}, Recommended: Dimensions{400, 400}},
			Small:  {Minimum: Dimensions{100, 100}, Recommended: Dimensions{200, 200}},
		},
		Kinds:            []SizeKind{Large, Small},
		BodyImages:       true,
		ShortDescription: 100,
		NoImage:          FallbackText,
	},
	Discourse: {
		Name:        "discourse",
		Lookups:     defaultLookups,
		Constraints: Constraints{MaxBytes: defaultMaxBytes, Formats: rasterFormats},
		Sizes:       uniform(Dimensions{32, 32}, Dimensions{400, 400}),
		Kinds:       []SizeKind{Small},
		SiteNameTag: "og:site_name",
		NoImage:     FallbackText,
	},
}
