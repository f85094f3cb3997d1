package console

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessions(t *testing.T) {
	s := NewSessions(true)
	if s.Valid("") {
		t.Error("empty token must never be valid")
	}

	tok := s.Issue()
	if !s.Valid(tok) || s.Valid(tok+"x") {
		t.Error("token validation wrong")
	}

	next := s.Issue()
	if s.Valid(tok) || !s.Valid(next) {
		t.Error("new token must replace the old one")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(s.Cookie(next))
	if !s.FromRequest(req) {
		t.Error("cookie not accepted")
	}
	if c := s.Cookie(next); !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("unexpected cookie attributes %+v", c)
	}

	s.Revoke()
	if s.FromRequest(req) {
		t.Error("revoked session still accepted")
	}
}
