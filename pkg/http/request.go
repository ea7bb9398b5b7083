package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are trusted
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// ExtractClientIP returns the caller's IP for lockout bookkeeping.
// X-Forwarded-For and X-Real-IP are honored only when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remote := remoteAddr(r)

	if config == nil || !config.trusts(remote) {
		return remote
	}

	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return ip.String()
		}
	}
	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return ip.String()
	}

	return remote
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (c *IPConfig) trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, cidr := range c.TrustedProxies {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
