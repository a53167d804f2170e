// Package metadata records who is calling: the client address and a short
// description of the user agent.
package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"truthlens/pkg/requestcontext"
)

// MaxForwardedHeaderLength bounds X-Forwarded-For / X-Real-IP values that are
// considered at all.
const MaxForwardedHeaderLength = 500

// Config holds configuration for the metadata middleware.
type Config struct {
	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Empty means the
	// direct peer address is always used.
	TrustedProxies []netip.Prefix

	// Anonymize is applied to the client address before it is stored.
	// Nil stores the address unchanged.
	Anonymize func(ip string) string
}

// Middleware handles client metadata extraction.
type Middleware struct {
	config Config
}

// NewMiddleware creates a metadata middleware. A nil cfg trusts no proxies.
func NewMiddleware(cfg *Config) *Middleware {
	m := &Middleware{}
	if cfg != nil {
		m.config = *cfg
	}
	return m
}

// Handler stores the client address and user agent description in the context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.ClientIP(r)
		if m.config.Anonymize != nil {
			ip = m.config.Anonymize(ip)
		}
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, DescribeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP resolves the originating address. Forwarding headers are honored
// only when the direct peer is a trusted proxy.
func (m *Middleware) ClientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !m.trusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && len(xff) <= MaxForwardedHeaderLength {
		return m.forwardedFor(xff, peer).String()
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" && len(xri) <= MaxForwardedHeaderLength {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.String()
		}
	}
	return peer.String()
}

// forwardedFor walks X-Forwarded-For from the nearest hop outwards and returns
// the first address outside TrustedProxies. Entries left of it are client
// supplied and ignored. An unparseable hop stops the walk at the last good one.
func (m *Middleware) forwardedFor(xff string, peer netip.Addr) netip.Addr {
	hops := strings.Split(xff, ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap()
		if !m.trusted(client) {
			break
		}
	}
	return client
}

func (m *Middleware) trusted(addr netip.Addr) bool {
	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func peerAddr(remoteAddr string) (netip.Addr, bool) {
	if remoteAddr == "" {
		return netip.Addr{}, false
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// DescribeUserAgent reduces a User-Agent header to "browser/os", adding
// "mobile" or returning "bot" where detected. Empty input yields "unknown".
func DescribeUserAgent(header string) string {
	if strings.TrimSpace(header) == "" {
		return "unknown"
	}
	ua := useragent.New(header)
	if ua.Bot() {
		return "bot"
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	desc := browser
	if os := ua.OS(); os != "" {
		desc += "/" + os
	}
	if ua.Mobile() {
		desc += " mobile"
	}
	return desc
}
