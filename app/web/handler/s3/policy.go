package s3

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-mizu/blueprints/casgate/internal/iprange"
)

// Mode is the GetObject dispatch policy (C8): whether a hit streams
// bytes through the gateway or redirects the client to the public
// gateway mirror.
type Mode string

const (
	ModeProxy    Mode = "proxy"
	ModeRedirect Mode = "redirect"
	ModeAuto     Mode = "auto"
)

// ParseMode parses a configured mode string, defaulting to ModeAuto on
// an unrecognized value — the default the prototype's CLI also falls
// back to.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeProxy:
		return ModeProxy
	case ModeRedirect:
		return ModeRedirect
	default:
		return ModeAuto
	}
}

// IPExtraction is the configurable source of the "client IP" C8's auto
// mode classifies, an operator choice about the deployment's network
// topology (spec.md §4.8).
type IPExtraction string

const (
	// IPFromRemoteAddr takes the client IP directly from the TCP
	// connection (no reverse proxy in front of the gateway).
	IPFromRemoteAddr IPExtraction = "remote_addr"
	// IPFromForwardedFor trusts the left-most address in
	// X-Forwarded-For (a trusted reverse proxy sits in front).
	IPFromForwardedFor IPExtraction = "x_forwarded_for"
)

// ParseIPExtraction parses a configured ip_extraction value, defaulting
// to the direct-connection source.
func ParseIPExtraction(s string) IPExtraction {
	if IPExtraction(s) == IPFromForwardedFor {
		return IPFromForwardedFor
	}
	return IPFromRemoteAddr
}

// ClientIP extracts the request's client address per the configured
// source.
func ClientIP(r *http.Request, source IPExtraction) net.IP {
	if source == IPFromForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// Policy resolves a GetObject mode decision for a single request.
type Policy struct {
	Mode         Mode
	IPExtraction IPExtraction
	PrivateCIDRs []*net.IPNet
	Gateway      string // base URL for redirect mode, e.g. "https://dweb.link"
}

// ShouldProxy reports whether this request should stream bytes through
// the gateway (true) or receive a redirect (false), per spec.md §4.8.
func (p Policy) ShouldProxy(r *http.Request) bool {
	switch p.Mode {
	case ModeProxy:
		return true
	case ModeRedirect:
		return false
	default: // ModeAuto
		ip := ClientIP(r, p.IPExtraction)
		return iprange.IsPrivate(ip, p.PrivateCIDRs)
	}
}

// RedirectLocation builds the redirect target for cid: "{gateway}/ipfs/{cid}".
func (p Policy) RedirectLocation(cid string) string {
	return strings.TrimRight(p.Gateway, "/") + "/ipfs/" + cid
}
