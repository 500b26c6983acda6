// Package iprange classifies client addresses for the GetObject dispatch
// policy (C8): RFC 6890 "special-purpose" ranges, plus an operator
// supplied list of additional private CIDRs.
package iprange

import "net"

// reserved holds the RFC 6890 special-purpose address blocks relevant to
// classifying a client as "local" to the deployment rather than a public
// Internet peer. This mirrors the `iprfc::RFC6890` table the prototype
// depends on.
var reserved = mustParseAll(
	// IPv4
	"0.0.0.0/8",          // "This host on this network"
	"10.0.0.0/8",          // Private-Use
	"100.64.0.0/10",       // Shared Address Space
	"127.0.0.0/8",         // Loopback
	"169.254.0.0/16",      // Link Local
	"172.16.0.0/12",       // Private-Use
	"192.0.0.0/24",        // IETF Protocol Assignments
	"192.0.2.0/24",        // Documentation (TEST-NET-1)
	"192.88.99.0/24",      // 6to4 Relay Anycast
	"192.168.0.0/16",      // Private-Use
	"198.18.0.0/15",       // Benchmarking
	"198.51.100.0/24",     // Documentation (TEST-NET-2)
	"203.0.113.0/24",      // Documentation (TEST-NET-3)
	"240.0.0.0/4",         // Reserved
	"255.255.255.255/32",  // Limited Broadcast
	// IPv6
	"::1/128",        // Loopback
	"::/128",         // Unspecified
	// The IPv4-mapped block ::ffff:0:0/96 is not listed: net.IPNet.Contains
	// reduces it to 0.0.0.0/0, which would match every IPv4 address. Mapped
	// addresses are classified by the IPv4 entries above instead.
	"64:ff9b::/96",   // IPv4-IPv6 Translation
	"100::/64",       // Discard-Only
	"2001::/23",      // IETF Protocol Assignments
	"2001:2::/48",    // Benchmarking
	"2001:db8::/32",  // Documentation
	"2001:10::/28",   // ORCHID (deprecated, still reserved)
	"fc00::/7",       // Unique Local
	"fe80::/10",      // Link-Local Unicast
)

func mustParseAll(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("iprange: invalid built-in CIDR " + c + ": " + err.Error())
		}
		nets = append(nets, n)
	}
	return nets
}

// IsReserved reports whether ip falls in an RFC 6890 special-purpose
// range.
func IsReserved(ip net.IP) bool {
	return containsAny(reserved, ip)
}

// IsPrivate reports whether ip falls in any of the caller-supplied CIDRs,
// in addition to the RFC 6890 reserved set. This is the full "auto" mode
// predicate used by C8: a client is treated as local/private iff
// IsReserved(ip) or it matches one of the operator's private_cidrs.
func IsPrivate(ip net.IP, extra []*net.IPNet) bool {
	return IsReserved(ip) || containsAny(extra, ip)
}

// ParseCIDRs parses a list of CIDR strings, as consumed from
// configuration's "private_cidrs" flag/env value.
func ParseCIDRs(values []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		_, n, err := net.ParseCIDR(v)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func containsAny(nets []*net.IPNet, ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
