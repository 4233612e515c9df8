package stream

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxySet holds the addresses allowed to report a client address through
// Forwarded or X-Forwarded-For.
type proxySet struct {
	prefixes []netip.Prefix
}

// newProxySet parses IPs and CIDRs. Invalid entries are logged and skipped.
func newProxySet(entries []string, logger *slog.Logger) *proxySet {
	var s proxySet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				continue
			}
			s.prefixes = append(s.prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Warn("invalid trusted proxy IP", "entry", entry, "error", err)
			continue
		}
		addr = addr.Unmap()
		s.prefixes = append(s.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(s.prefixes) == 0 {
		return nil
	}
	return &s
}

func (s *proxySet) trusted(addr netip.Addr) bool {
	if s == nil || !addr.IsValid() {
		return false
	}
	for _, p := range s.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the address of the client behind r. Forwarding headers
// are honoured only when the peer is a trusted proxy; the rightmost
// untrusted hop wins.
func clientIP(r *http.Request, proxies *proxySet) string {
	peer := parseHop(r.RemoteAddr)
	if !peer.IsValid() {
		return ""
	}
	if !proxies.trusted(peer) {
		return peer.String()
	}

	hops := forwardedFor(r.Header.Get("Forwarded"))
	if len(hops) == 0 {
		hops = xForwardedFor(r.Header.Get("X-Forwarded-For"))
	}
	if len(hops) == 0 {
		return peer.String()
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !proxies.trusted(hops[i]) {
			return hops[i].String()
		}
	}
	return hops[0].String()
}

// forwardedFor extracts the for= hops of an RFC 7239 Forwarded header.
func forwardedFor(header string) []netip.Addr {
	var hops []netip.Addr
	for _, element := range strings.Split(header, ",") {
		for _, pair := range strings.Split(element, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "for") {
				continue
			}
			if addr := parseHop(value); addr.IsValid() {
				hops = append(hops, addr)
			}
		}
	}
	return hops
}

func xForwardedFor(header string) []netip.Addr {
	var hops []netip.Addr
	for _, part := range strings.Split(header, ",") {
		if addr := parseHop(part); addr.IsValid() {
			hops = append(hops, addr)
		}
	}
	return hops
}

// parseHop parses an address that may be quoted, bracketed, carry a port
// or a zone. It returns the zero Addr for "unknown" and obfuscated hops.
func parseHop(value string) netip.Addr {
	host := strings.Trim(strings.TrimSpace(value), `"`)
	if host == "" || strings.EqualFold(host, "unknown") {
		return netip.Addr{}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.Trim(host, "[]")
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.WithZone("").Unmap()
}
