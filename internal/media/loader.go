package media

import (
	"context"
	"net/http"

	"github.com/adammathes/sharepreview/internal/fetch"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader carries the collaborators images need to fetch and decode:
// the HTTP client, the decode pool and request settings. A zero Loader
// uses http.DefaultClient and a GOMAXPROCS-sized pool.
type Loader struct {
	Client    Doer
	Pool      *Pool
	UserAgent string
	// MaxBytes caps a downloaded body; <= 0 uses fetch.DefaultMaxResponseBytes.
	MaxBytes int64
}

// NewLoader returns a Loader using client and a pool of workers slots.
func NewLoader(client Doer, workers int) *Loader {
	return &Loader{
		Client:    client,
		Pool:      NewPool(workers),
		UserAgent: fetch.DefaultUserAgent,
		MaxBytes:  fetch.DefaultMaxResponseBytes,
	}
}

var defaultPool = NewPool(0)

func (l *Loader) pool() *Pool {
	if l == nil || l.Pool == nil {
		return defaultPool
	}
	return l.Pool
}

func (l *Loader) client() Doer {
	if l == nil || l.Client == nil {
		return http.DefaultClient
	}
	return l.Client
}

func (l *Loader) userAgent() string {
	if l == nil || l.UserAgent == "" {
		return fetch.DefaultUserAgent
	}
	return l.UserAgent
}

func (l *Loader) maxBytes() int64 {
	if l == nil || l.MaxBytes <= 0 {
		return fetch.DefaultMaxResponseBytes
	}
	return l.MaxBytes
}

// get downloads rawURL, mapping transport failures to FetchError and
// non-2xx answers to RequestError.
func (l *Loader) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &URLError{Raw: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", l.userAgent())
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5")

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{URL: rawURL, Status: resp.StatusCode}
	}

	data, err := fetch.ReadLimited(resp.Body, l.maxBytes())
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return data, nil
}
