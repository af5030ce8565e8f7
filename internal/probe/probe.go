// Package probe defines the shared contract both protocol adapters
// (internal/probe/btc, internal/probe/zec) implement, and the dialing
// helpers (direct vs. SOCKS5-via-Tor) common to both.
package probe

import (
	"context"
	"net"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"hosh/internal/domain"
)

// Adapter is a per-network protocol adapter: given a target address,
// run one probe and return its decoded outcome shaped directly as the
// data model's response_data payload (spec.md §3/§8).
type Adapter interface {
	// Probe performs one bounded-deadline check against hostname:port
	// and returns the decoded result. It never panics and never blocks
	// past ctx's deadline.
	Probe(ctx context.Context, hostname string, port int) domain.ResponseData
}

// IsOnion reports whether hostname is a Tor hidden-service address.
func IsOnion(hostname string) bool {
	return strings.HasSuffix(strings.ToLower(hostname), ".onion")
}

// DialTimeoutDirect is the deadline for a direct (non-proxied) TCP
// connect, per spec.md's authoritative timeout table.
const DialTimeoutDirect = 10 * time.Second

// DialTimeoutSOCKS5 is the deadline for a TCP connect performed
// through the SOCKS5/Tor proxy, per spec.md's authoritative timeout
// table (higher than a direct connect: onion circuit construction is
// slower than a plain TCP handshake).
const DialTimeoutSOCKS5 = 30 * time.Second

// Dialer dials either directly or through a SOCKS5 proxy with remote
// DNS resolution, selected per-call by IsOnion(hostname).
type Dialer struct {
	ProxyAddr string // "" disables proxying; onion targets then fail to dial
}

// NewDialer builds a Dialer that routes .onion targets through
// proxyAddr (typically SOCKS_PROXY or TOR_PROXY_HOST:PORT).
func NewDialer(proxyAddr string) *Dialer {
	return &Dialer{ProxyAddr: proxyAddr}
}

// DialContext connects to addr, routing through the SOCKS5 proxy when
// hostname is a .onion address, and directly otherwise. The caller is
// responsible for enforcing ctx's deadline on the returned connection
// where the underlying dialer does not already do so.
func (d *Dialer) DialContext(ctx context.Context, hostname string, addr string) (net.Conn, error) {
	if !IsOnion(hostname) {
		dialer := &net.Dialer{Timeout: DialTimeoutDirect}
		return dialer.DialContext(ctx, "tcp", addr)
	}

	if d.ProxyAddr == "" {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errNoProxyConfigured}
	}

	// golang.org/x/net/proxy performs remote (proxy-side) DNS
	// resolution by default when given a hostname rather than an IP,
	// which is required for onion addresses and preferred for privacy
	// (spec.md §9 glossary: "SOCKS5 with remote DNS").
	socksDialer, err := proxy.SOCKS5("tcp", d.ProxyAddr, nil, &net.Dialer{Timeout: DialTimeoutSOCKS5})
	if err != nil {
		return nil, err
	}

	type contextDialer interface {
		DialContext(ctx context.Context, network, addr string) (net.Conn, error)
	}
	if cd, ok := socksDialer.(contextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return socksDialer.Dial("tcp", addr)
}

var errNoProxyConfigured = dialError("no SOCKS5 proxy configured for .onion target")

type dialError string

func (e dialError) Error() string { return string(e) }
