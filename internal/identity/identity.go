// Package identity resolves anonymous guests and the host from request
// metadata. There are no accounts: a guest is whatever stable fingerprint
// the client presents, or a hash of the connection's IP and user agent
// when it presents none.
package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

const (
	// VisitorHeader carries the client-chosen stable fingerprint.
	VisitorHeader = "X-Visitor-Id"
	// NameHeader carries the client-chosen display name.
	NameHeader = "X-Visitor-Name"
	// AdminHeader carries the host token.
	AdminHeader = "X-Admin-Token"

	maxFingerprintLen = 64
	maxNameLen        = 32
)

// Identity is one resolved caller.
type Identity struct {
	Fingerprint string
	Name        string
	Admin       bool
}

// Resolver derives identities from requests.
type Resolver struct {
	adminToken string
}

// NewResolver builds a resolver. An empty admin token disables the host
// role entirely rather than granting it to everyone.
func NewResolver(adminToken string) *Resolver {
	return &Resolver{adminToken: adminToken}
}

// Resolve extracts the caller's identity from the request. The visitor
// header wins when present; otherwise the fingerprint is a hash of the
// remote IP and user agent, which keeps one browser stable across
// requests without any cookie.
func (rv *Resolver) Resolve(r *http.Request) Identity {
	fp := sanitize(r.Header.Get(VisitorHeader), maxFingerprintLen)
	if fp == "" {
		fp = hashedFingerprint(r)
	}
	name := sanitize(r.Header.Get(NameHeader), maxNameLen)
	if name == "" {
		short := fp
		if len(short) > 4 {
			short = short[:4]
		}
		name = "Guest-" + short
	}
	return Identity{
		Fingerprint: fp,
		Name:        name,
		Admin:       rv.IsAdmin(r),
	}
}

// IsAdmin checks the host token with a constant-time compare.
func (rv *Resolver) IsAdmin(r *http.Request) bool {
	if rv.adminToken == "" {
		return false
	}
	given := r.Header.Get(AdminHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(rv.adminToken)) == 1
}

func hashedFingerprint(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host + "|" + r.UserAgent()))
	return hex.EncodeToString(sum[:8])
}

// sanitize strips control characters and whitespace and caps the length,
// so header-sourced values are safe as store keys and feed content.
func sanitize(s string, max int) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= max {
			break
		}
	}
	return b.String()
}
