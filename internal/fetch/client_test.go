package fetch

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/net/http2"
)

func TestNewClient_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(Options{Timeout: 5 * time.Second, AllowPrivate: true})
	if client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.Timeout)
	}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	client := NewClient(Options{})
	if client.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", client.Timeout)
	}
}

func TestNewClient_BrowserPlainHTTP(t *testing.T) {
	// Plain HTTP goes through the h1 transport of the browser client.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain"))
	}))
	defer srv.Close()

	client := NewClient(Options{Timeout: 5 * time.Second, Browser: true, AllowPrivate: true})
	if _, ok := client.Transport.(*browserTransport); !ok {
		t.Fatalf("transport = %T, want *browserTransport", client.Transport)
	}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
}

func TestNewClient_ProxyTransport(t *testing.T) {
	client := NewClient(Options{Timeout: time.Second, Proxy: "http://proxy.example:3128", Browser: true})
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport = %T, want *http.Transport", client.Transport)
	}
	if transport.Proxy == nil {
		t.Fatal("expected proxy function")
	}
	req, _ := http.NewRequest("GET", "https://example.com/", nil)
	u, err := transport.Proxy(req)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "proxy.example:3128" {
		t.Errorf("proxy host = %q", u.Host)
	}
}

func TestSSRFProtection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret internal data"))
	}))
	defer srv.Close()

	client := NewClient(Options{Timeout: 5 * time.Second})
	_, err := client.Get(srv.URL)
	if err == nil {
		t.Fatal("expected error fetching local URL, but got success")
	}
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("error = %v, want *BlockedError", err)
	}
	if blocked.Host != "127.0.0.1" {
		t.Errorf("blocked host = %q, want 127.0.0.1", blocked.Host)
	}
	if !strings.Contains(err.Error(), "blocked connection") {
		t.Errorf("expected 'blocked connection' error, got: %v", err)
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{
		"127.0.0.1", "::1",
		"10.0.0.1", "10.255.255.255",
		"172.16.0.1", "172.31.255.255",
		"192.168.0.1", "192.168.255.255",
		"169.254.1.1", "fe80::1", "fd00::1",
		"100.64.0.1", "0.0.0.0", "198.18.0.1",
		"::ffff:10.0.0.1",
	}
	for _, ip := range private {
		if !IsPrivateIP(net.ParseIP(ip)) {
			t.Errorf("%s should be private", ip)
		}
	}
	public := []string{"8.8.8.8", "1.1.1.1", "172.32.0.1", "2606:4700:4700::1111"}
	for _, ip := range public {
		if IsPrivateIP(net.ParseIP(ip)) {
			t.Errorf("%s should not be private", ip)
		}
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Errorf("exact limit: got %q, %v", data, err)
	}

	_, err = ReadLimited(strings.NewReader("hello!"), 5)
	if err == nil {
		t.Fatal("expected error when body exceeds limit")
	}
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Limit != 5 {
		t.Errorf("error = %v, want *TooLargeError with limit 5", err)
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("unexpected error: %v", err)
	}

	big := bytes.Repeat([]byte("x"), 1<<16)
	data, err = ReadLimited(bytes.NewReader(big), 0)
	if err != nil || len(data) != len(big) {
		t.Errorf("unlimited read: got %d bytes, %v", len(data), err)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0.0B"},
		{512, "512.0B"},
		{2048, "2.0KB"},
		{5 * 1024 * 1024, "5.0MB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.n); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/", "example.com:443"},
		{"https://example.com:8443/x", "example.com:8443"},
		{"https://[::1]/", "[::1]:443"},
		{"https://[::1]:8080/", "[::1]:8080"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := hostPort(u); got != tt.want {
			t.Errorf("hostPort(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestHumanSize_LargeUnits(t *testing.T) {
	if got := HumanSize(3 << 40); got != "3.0TB" {
		t.Errorf("HumanSize(3TB) = %q", got)
	}
	if got := HumanSize(1 << 50); got != "1024.0TB" {
		t.Errorf("HumanSize(1PB) = %q, want 1024.0TB", got)
	}
}

// newH2Server starts a TLS server speaking h2 and counts accepted
// connections.
func newH2Server(t *testing.T, h http.Handler) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(h)
	srv.EnableHTTP2 = true
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv, &conns
}

func testBrowserTransport(srv *httptest.Server) *browserTransport {
	bt := newBrowserTransport((&net.Dialer{Timeout: 5 * time.Second}).DialContext)
	bt.rootCAs = x509.NewCertPool()
	bt.rootCAs.AddCert(srv.Certificate())
	return bt
}

func TestBrowserTransport_ConcurrentRequestsShareConn(t *testing.T) {
	srv, conns := newH2Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(r.Proto))
	}))
	client := &http.Client{Transport: testBrowserTransport(srv), Timeout: 10 * time.Second}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	protos := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(srv.URL + "/img")
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			errs[i], protos[i] = err, string(body)
		}()
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Errorf("request %d: %v", i, errs[i])
		} else if protos[i] != "HTTP/2.0" {
			t.Errorf("request %d served over %q, want HTTP/2.0", i, protos[i])
		}
	}
	if got := conns.Load(); got != 1 {
		t.Errorf("server accepted %d connections, want 1", got)
	}
}

func TestBrowserTransport_StoreKeepsInFlightConn(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv, _ := newH2Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			once.Do(func() { close(started) })
			<-release
		}
		w.Write([]byte("done"))
	}))
	bt := testBrowserTransport(srv)
	u, _ := url.Parse(srv.URL)
	addr := hostPort(u)
	ctx := context.Background()

	dialH2 := func() *http2.ClientConn {
		t.Helper()
		conn, err := bt.handshake(ctx, addr, u.Hostname())
		if err != nil {
			t.Fatal(err)
		}
		cc, err := bt.h2.NewClientConn(conn)
		if err != nil {
			t.Fatal(err)
		}
		return cc
	}

	first := dialH2()
	bt.store(addr, first)

	result := make(chan error, 1)
	go func() {
		req, _ := http.NewRequest("GET", srv.URL+"/slow", nil)
		resp, err := first.RoundTrip(req)
		if err == nil {
			_, err = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		result <- err
	}()
	<-started

	second := dialH2()
	bt.store(addr, second)
	close(release)

	if err := <-result; err != nil {
		t.Fatalf("in-flight request failed after the cache entry was replaced: %v", err)
	}
	if got := bt.cached(addr); got != second {
		t.Error("cache should hold the newer connection")
	}
}
