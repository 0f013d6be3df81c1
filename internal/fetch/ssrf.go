package fetch

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Ranges beyond netip's IsPrivate/IsLoopback/IsLinkLocal* checks.
var extraBlocked = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),     // "this network"
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("192.0.0.0/24"),  // IETF protocol assignments
	netip.MustParsePrefix("198.18.0.0/15"), // benchmarking
}

// BlockedError reports a host that resolves only to addresses the guard
// refuses to dial.
type BlockedError struct {
	Host string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked connection to %s: resolves only to private or local addresses", e.Host)
}

// IsPrivateIP reports whether ip is loopback, link-local, unspecified or
// in a private or reserved range. IPv4-mapped IPv6 addresses are judged
// by their IPv4 form.
func IsPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	return isBlocked(addr.Unmap())
}

func isBlocked(a netip.Addr) bool {
	if a.IsLoopback() || a.IsPrivate() || a.IsUnspecified() ||
		a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() || a.IsInterfaceLocalMulticast() {
		return true
	}
	for _, p := range extraBlocked {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// guard keeps page and image requests off the local network. Page
// metadata names arbitrary hosts, so every dial is checked.
type guard struct {
	allowPrivate bool
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// dialContext resolves the host once and dials the checked addresses
// directly, never the hostname.
func (g guard) dialContext(dialer *net.Dialer) dialFunc {
	if g.allowPrivate {
		return dialer.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, a := range addrs {
			a = a.Unmap()
			if isBlocked(a) {
				continue
			}
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &BlockedError{Host: host}
	}
}
