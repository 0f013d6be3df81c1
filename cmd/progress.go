package cmd

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// progress writes human-readable status lines. Concurrent builds share
// one, so writes are serialised.
type progress struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgress(w io.Writer) *progress {
	if w == nil {
		w = io.Discard
	}
	return &progress{w: w}
}

func (p *progress) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

// shortURL returns host and path without the scheme, truncated to 60
// characters.
func shortURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	display := strings.TrimSuffix(u.Host+u.Path, "/")
	if len(display) > 60 {
		display = display[:57] + "..."
	}
	return display
}
