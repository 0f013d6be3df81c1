// Package fetch builds the HTTP clients used to download pages and images.
// HTTPS requests can carry a browser TLS fingerprint so that sites which
// reject Go's default handshake still serve their metadata.
package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/sync/semaphore"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// DefaultMaxResponseBytes caps any single response body.
const DefaultMaxResponseBytes int64 = 128 * 1024 * 1024

const (
	defaultTimeout = 30 * time.Second
	// h2IdleTimeout closes multiplexed connections nobody reuses.
	h2IdleTimeout = 90 * time.Second
)

// Options configures NewClient.
type Options struct {
	Timeout time.Duration
	// Proxy routes every request through this HTTP proxy with standard TLS.
	Proxy string
	// Browser dials HTTPS with a Firefox TLS fingerprint.
	Browser bool
	// AllowPrivate disables the private/loopback address guard.
	AllowPrivate bool
}

// NewClient returns an HTTP client for opts. With a proxy configured it
// uses standard TLS, since uTLS cannot negotiate CONNECT tunnels.
func NewClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dial := guard{allowPrivate: opts.AllowPrivate}.dialContext(&net.Dialer{Timeout: timeout})

	var rt http.RoundTripper
	switch {
	case opts.Proxy != "":
		t := &http.Transport{DialContext: dial}
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			t.Proxy = http.ProxyURL(proxyURL)
		}
		rt = t
	case opts.Browser:
		rt = newBrowserTransport(dial)
	default:
		rt = &http.Transport{DialContext: dial}
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

// TooLargeError reports a body over the read limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("response body exceeds maximum allowed size (%s)", HumanSize(e.Limit))
}

// ReadLimited reads r fully, failing with *TooLargeError once more than
// limit bytes arrive. A limit of 0 or less reads without bound.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &TooLargeError{Limit: limit}
	}
	return data, nil
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize formats a byte count with a binary unit suffix.
func HumanSize(n int64) string {
	f := float64(n)
	i := 0
	for math.Abs(f) >= 1024 && i < len(sizeUnits)-1 {
		f /= 1024
		i++
	}
	return fmt.Sprintf("%.1f%s", f, sizeUnits[i])
}

// utlsConn exposes the uTLS handshake result in crypto/tls form so that
// net/http fills Response.TLS.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:            cs.Version,
		HandshakeComplete:  cs.HandshakeComplete,
		CipherSuite:        cs.CipherSuite,
		NegotiatedProtocol: cs.NegotiatedProtocol,
		ServerName:         cs.ServerName,
		PeerCertificates:   cs.PeerCertificates,
		VerifiedChains:     cs.VerifiedChains,
	}
}

// browserTransport dials HTTPS with a Firefox ClientHello. Hosts that
// negotiate h2 keep one multiplexed connection, since a page's images
// usually share a host. HTTP/1.1 hosts get a connection per request.
// Plain HTTP goes through h1 unchanged.
//
// Handshakes to one host:port are serialized so concurrent requests
// converge on a single h2 connection. A cached connection is never closed
// here; one that stops taking requests is dropped from the cache and
// closes itself once idle.
type browserTransport struct {
	dial dialFunc
	h1   *http.Transport
	h2   *http2.Transport
	// rootCAs overrides the system roots; nil in production.
	rootCAs *x509.CertPool

	mu      sync.Mutex
	conns   map[string]*http2.ClientConn
	dialing map[string]*semaphore.Weighted
}

func newBrowserTransport(dial dialFunc) *browserTransport {
	return &browserTransport{
		dial:    dial,
		h1:      &http.Transport{DialContext: dial},
		h2:      &http2.Transport{IdleConnTimeout: h2IdleTimeout},
		conns:   make(map[string]*http2.ClientConn),
		dialing: make(map[string]*semaphore.Weighted),
	}
}

func (bt *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return bt.h1.RoundTrip(req)
	}
	addr := hostPort(req.URL)
	if cc := bt.cached(addr); cc != nil {
		return cc.RoundTrip(req)
	}

	ctx := req.Context()
	sem := bt.hostLock(addr)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	// Another request may have connected while this one waited.
	if cc := bt.cached(addr); cc != nil {
		sem.Release(1)
		return cc.RoundTrip(req)
	}
	conn, err := bt.handshake(ctx, addr, req.URL.Hostname())
	if err != nil {
		sem.Release(1)
		return nil, err
	}
	if conn.ConnectionState().NegotiatedProtocol == "h2" {
		cc, err := bt.h2.NewClientConn(conn)
		if err != nil {
			sem.Release(1)
			conn.Close()
			return nil, err
		}
		bt.store(addr, cc)
		sem.Release(1)
		return cc.RoundTrip(req)
	}
	sem.Release(1)

	once := &http.Transport{
		DialTLSContext: func(context.Context, string, string) (net.Conn, error) {
			return conn, nil
		},
		DisableKeepAlives: true,
	}
	return once.RoundTrip(req)
}

func (bt *browserTransport) handshake(ctx context.Context, addr, serverName string) (*utlsConn, error) {
	raw, err := bt.dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	cfg := &utls.Config{ServerName: serverName, RootCAs: bt.rootCAs}
	uc := utls.UClient(raw, cfg, utls.HelloFirefox_120)
	if err := uc.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("TLS handshake with %s: %w", serverName, err)
	}
	return &utlsConn{uc}, nil
}

func (bt *browserTransport) hostLock(addr string) *semaphore.Weighted {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	sem, ok := bt.dialing[addr]
	if !ok {
		sem = semaphore.NewWeighted(1)
		bt.dialing[addr] = sem
	}
	return sem
}

func (bt *browserTransport) cached(addr string) *http2.ClientConn {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	cc, ok := bt.conns[addr]
	if !ok {
		return nil
	}
	if !cc.CanTakeNewRequest() {
		delete(bt.conns, addr)
		return nil
	}
	return cc
}

// store caches cc for addr. A replaced connection may still carry
// requests, so it is left to finish and idle out.
func (bt *browserTransport) store(addr string, cc *http2.ClientConn) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.conns[addr] = cc
}

// hostPort returns u's host with the HTTPS port filled in.
func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), "443")
}
