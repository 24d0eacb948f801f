package middlewares

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseTrustedProxies acepta IPs sueltas o CIDRs. Las entradas inválidas se ignoran
// (config.Validate ya las rechaza).
func ParseTrustedProxies(entries []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

// WithClientIP resuelve la IP del cliente una sola vez por request.
// X-Forwarded-For solo se lee si el peer directo es un proxy de confianza; en ese
// caso se recorre de derecha a izquierda y gana el primer salto no confiable.
func WithClientIP(trusted []string) Middleware {
	proxies := ParseTrustedProxies(trusted)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, proxies)
			next.ServeHTTP(w, r.WithContext(setClientIP(r.Context(), ip)))
		})
	}
}

func resolveClientIP(r *http.Request, proxies []netip.Prefix) string {
	peer := remoteHost(r)
	if len(proxies) == 0 || !isTrusted(peer, proxies) {
		return peer
	}

	hops := r.Header.Values("X-Forwarded-For")
	ip := peer
	for i := len(hops) - 1; i >= 0; i-- {
		parts := strings.Split(hops[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			hop := strings.TrimSpace(parts[j])
			if _, err := netip.ParseAddr(hop); err != nil {
				// salto basura: nos quedamos con el último válido
				return ip
			}
			ip = hop
			if !isTrusted(hop, proxies) {
				return hop
			}
		}
	}
	return ip
}

func isTrusted(ip string, proxies []netip.Prefix) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range proxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// clientIP devuelve la IP resuelta por WithClientIP o, sin ese middleware,
// el peer directo. Nunca confía en headers por sí solo.
func clientIP(r *http.Request) string {
	if ip := GetClientIP(r.Context()); ip != "" {
		return ip
	}
	return remoteHost(r)
}
