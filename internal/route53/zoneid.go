package route53

import (
	"strings"

	"github.com/miekg/dns"
)

// ZoneID is the bare Route 53 hosted zone identifier (e.g. "Z0123456789ABC").
// The provider reports zone ids as a resource path ("/hostedzone/Z0123456789ABC");
// ParseZoneID is the only place that path is taken apart.
type ZoneID string

// ParseZoneID extracts the zone id from a Route 53 resource path by taking
// the last path segment. A bare id is returned unchanged.
func ParseZoneID(path string) ZoneID {
	path = strings.TrimSpace(path)
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return ZoneID(path)
}

// String returns the bare id.
func (z ZoneID) String() string {
	return string(z)
}

// IsEmpty reports whether the id is unset.
func (z ZoneID) IsEmpty() bool {
	return z == ""
}

// CanonicalName returns the provider's canonical form of a domain name:
// lowercase with a trailing dot. "Example.com" and "example.com." both
// become "example.com.".
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToLower(dns.Fqdn(name))
}

// DisplayName strips the trailing dot for presentation.
func DisplayName(name string) string {
	if name == "." {
		return name
	}
	return strings.TrimSuffix(name, ".")
}
