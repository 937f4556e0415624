package httpfetch

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// CheckURL rejects asset URLs the fetcher must not touch: non-absolute URLs,
// embedded credentials, plain http unless allowed, and hosts outside the
// allowlist when one is configured.
func CheckURL(raw string, allowed map[string]struct{}, allowInsecure bool) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid asset URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid asset URL %q: absolute URL with host is required", raw)
	}
	if u.User != nil {
		return errors.New("invalid asset URL: userinfo is not allowed")
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !allowInsecure {
			return fmt.Errorf("invalid asset URL %q: https is required", raw)
		}
	default:
		return fmt.Errorf("invalid asset URL %q: unsupported scheme %q", raw, u.Scheme)
	}

	if len(allowed) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if _, ok := allowed[host]; !ok {
		return fmt.Errorf("invalid asset URL %q: host %q is not in ASSET_ALLOWED_HOSTS", raw, host)
	}
	return nil
}

// NormalizeAllowedHosts turns configured entries into bare lowercase host
// names. An empty result means any host is allowed.
func NormalizeAllowedHosts(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	return out
}
