package identity

import (
	"net/http/httptest"
	"testing"
)

func TestResolve_VisitorHeaderWins(t *testing.T) {
	rv := NewResolver("secret")
	r := httptest.NewRequest("GET", "/api/queue", nil)
	r.Header.Set(VisitorHeader, "visitor-123")
	r.Header.Set(NameHeader, "DJ Cool")

	id := rv.Resolve(r)
	if id.Fingerprint != "visitor-123" {
		t.Errorf("fingerprint = %q, want visitor-123", id.Fingerprint)
	}
	if id.Name != "DJ Cool" {
		t.Errorf("name = %q, want DJ Cool", id.Name)
	}
	if id.Admin {
		t.Error("admin without token")
	}
}

func TestResolve_FallsBackToConnectionHash(t *testing.T) {
	rv := NewResolver("")
	r1 := httptest.NewRequest("GET", "/api/queue", nil)
	r1.RemoteAddr = "192.0.2.1:1111"
	r1.Header.Set("User-Agent", "browser-a")
	r2 := httptest.NewRequest("GET", "/api/queue", nil)
	r2.RemoteAddr = "192.0.2.1:2222" // same host, different port
	r2.Header.Set("User-Agent", "browser-a")
	r3 := httptest.NewRequest("GET", "/api/queue", nil)
	r3.RemoteAddr = "192.0.2.2:1111"
	r3.Header.Set("User-Agent", "browser-a")

	a, b, c := rv.Resolve(r1), rv.Resolve(r2), rv.Resolve(r3)
	if a.Fingerprint == "" {
		t.Fatal("empty fallback fingerprint")
	}
	if a.Fingerprint != b.Fingerprint {
		t.Error("same host and agent produced different fingerprints")
	}
	if a.Fingerprint == c.Fingerprint {
		t.Error("different hosts produced the same fingerprint")
	}
	if a.Name == "" {
		t.Error("no derived display name")
	}
}

func TestResolve_SanitizesHeaders(t *testing.T) {
	rv := NewResolver("")
	r := httptest.NewRequest("GET", "/api/queue", nil)
	r.Header.Set(VisitorHeader, "  abc\x01def  ")

	if got := rv.Resolve(r).Fingerprint; got != "abcdef" {
		t.Errorf("fingerprint = %q, want control characters stripped", got)
	}
}

func TestIsAdmin(t *testing.T) {
	rv := NewResolver("secret")
	r := httptest.NewRequest("POST", "/admin/session/start", nil)

	if rv.IsAdmin(r) {
		t.Error("admin with no token header")
	}
	r.Header.Set(AdminHeader, "wrong")
	if rv.IsAdmin(r) {
		t.Error("admin with wrong token")
	}
	r.Header.Set(AdminHeader, "secret")
	if !rv.IsAdmin(r) {
		t.Error("correct token rejected")
	}

	// An unset token never grants the host role.
	open := NewResolver("")
	r.Header.Set(AdminHeader, "")
	if open.IsAdmin(r) {
		t.Error("empty configured token granted admin")
	}
}
