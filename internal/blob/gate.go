package blob

import (
	"net/http"
	"strings"
)

// DefaultIPHeader carries the client address set by the fronting proxy
const DefaultIPHeader = "X-Real-IP"

// Membership answers whether an IP may fetch blobs
type Membership interface {
	IsMember(ip string) bool
}

// Gate admits /data requests whose client IP header names a whitelisted
// address. The header is trusted as-is; jukebox expects to sit behind a
// reverse proxy that overwrites it.
type Gate struct {
	Header  string
	Members Membership
}

// Admit returns the client IP and 0 when the request may proceed, or the
// HTTP status to reject it with: 400 without an IP header, 403 otherwise.
func (g *Gate) Admit(r *http.Request) (string, int) {
	header := g.Header
	if header == "" {
		header = DefaultIPHeader
	}

	ip := strings.TrimSpace(r.Header.Get(header))
	if ip == "" {
		return "", http.StatusBadRequest
	}
	if g.Members == nil || !g.Members.IsMember(ip) {
		return ip, http.StatusForbidden
	}
	return ip, 0
}
