// Package render presents built cards as JSON, as a standalone HTML page
// and as Markdown. Images are embedded as PNG data URIs.
package render

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/adammathes/sharepreview/internal/card"
	"github.com/adammathes/sharepreview/internal/logbook"
	"github.com/adammathes/sharepreview/internal/placeholder"
	"github.com/adammathes/sharepreview/internal/social"
)

// Result is the outcome of one platform build.
type Result struct {
	Social social.Social
	Card   *card.Card
	Err    error
	Log    []logbook.Entry
}

// View is the presentation model of a Result.
type View struct {
	Social      string          `json:"social"`
	Size        string          `json:"size,omitempty"`
	Title       string          `json:"title,omitempty"`
	Site        string          `json:"site,omitempty"`
	Description *string         `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Favicon     string          `json:"favicon,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Error       string          `json:"error,omitempty"`
	Log         []logbook.Entry `json:"log,omitempty"`
}

// NewView converts r, drawing the placeholder icon for icon-style cards
// without an image.
func NewView(r Result) (View, error) {
	v := View{Social: r.Social.String(), Log: r.Log}
	if r.Err != nil {
		v.Error = r.Err.Error()
		return v, nil
	}
	c := r.Card
	if c == nil {
		return v, errors.New("result has neither card nor error")
	}

	v.Size = c.Size.String()
	v.Title = c.Title
	v.Site = c.Site
	v.Description = c.Description
	v.Image = DataURI(c.Image)
	v.Favicon = DataURI(c.Favicon)
	if c.ShowsIcon() {
		icon, err := placeholder.Icon(c.Site, c.Size.IconSize())
		if err != nil {
			return v, fmt.Errorf("drawing placeholder icon: %w", err)
		}
		v.Icon = DataURI(icon)
	}
	return v, nil
}

// Views converts every result in order.
func Views(results []Result) ([]View, error) {
	views := make([]View, 0, len(results))
	for _, r := range results {
		v, err := NewView(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Social, err)
		}
		views = append(views, v)
	}
	return views, nil
}

// DataURI encodes PNG bytes as a data: URL. Empty input yields "".
func DataURI(png []byte) string {
	if len(png) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// JSON writes results as an indented JSON array.
func JSON(w io.Writer, results []Result) error {
	views, err := Views(results)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(views); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
