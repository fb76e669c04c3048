package tenant

import (
	"strings"

	"github.com/amaxoft/portal-gateway/internal/config"
)

// PathPrefix namespaces tenant-scoped routes.
const PathPrefix = "/tenant/"

// Resolver derives tenant slugs from Host headers.
type Resolver struct {
	baseDomains     []string
	reserved        map[string]struct{}
	previewSuffixes []string
}

// NewResolver builds a resolver from tenant configuration.
func NewResolver(cfg config.TenantConfig) *Resolver {
	reserved := make(map[string]struct{}, len(cfg.ReservedSubdomains))
	for _, label := range cfg.ReservedSubdomains {
		reserved[strings.ToLower(label)] = struct{}{}
	}
	base := make([]string, 0, len(cfg.BaseDomains))
	for _, d := range cfg.BaseDomains {
		base = append(base, strings.ToLower(d))
	}
	return &Resolver{baseDomains: base, reserved: reserved, previewSuffixes: cfg.PreviewSuffixes}
}

// Resolve returns the tenant slug for host, if the host is a tenant subdomain
// of a configured base domain. Malformed hosts resolve to no tenant.
func (r *Resolver) Resolve(host string) (string, bool) {
	hostname := strings.ToLower(strings.TrimSpace(host))
	if i := strings.IndexByte(hostname, ':'); i >= 0 {
		hostname = hostname[:i]
	}

	if hostname == "localhost" || hostname == "127.0.0.1" {
		return "", false
	}
	for _, suffix := range r.previewSuffixes {
		if suffix != "" && strings.HasSuffix(hostname, strings.ToLower(suffix)) {
			return "", false
		}
	}

	labels := strings.Split(hostname, ".")
	if len(labels) <= 2 {
		return "", false
	}

	subdomain := labels[0]
	if subdomain == "" {
		return "", false
	}
	if _, ok := r.reserved[subdomain]; ok {
		return "", false
	}

	rest := strings.Join(labels[1:], ".")
	for _, base := range r.baseDomains {
		if rest == base || strings.HasSuffix(rest, "."+base) {
			return subdomain, true
		}
	}
	return "", false
}

// IsTenantPath reports whether path is already tenant-namespaced.
func IsTenantPath(path string) bool {
	return strings.HasPrefix(path, PathPrefix)
}

// RewritePath prefixes path with the tenant namespace.
func RewritePath(slug, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return PathPrefix + slug + path
}
