package console

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the operator session token.
const SessionCookie = "mtx_session"

// Sessions holds the single operator session token. Issuing a new token
// invalidates the previous one.
type Sessions struct {
	mu     sync.RWMutex
	token  string
	secure bool
}

// NewSessions returns an empty session holder. secure marks cookies Secure.
func NewSessions(secure bool) *Sessions {
	return &Sessions{secure: secure}
}

// Issue creates a new session token, replacing any previous one.
func (s *Sessions) Issue() string {
	tok := uuid.NewString()
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return tok
}

// Revoke forgets the current token.
func (s *Sessions) Revoke() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Valid reports whether tok is the current session token.
func (s *Sessions) Valid(tok string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || tok == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.token), []byte(tok)) == 1
}

// FromRequest reports whether r carries the current session cookie.
func (s *Sessions) FromRequest(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	return s.Valid(c.Value)
}

// Cookie returns the cookie that carries tok.
func (s *Sessions) Cookie(tok string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredCookie returns a cookie that clears the session in the browser.
func (s *Sessions) ExpiredCookie() *http.Cookie {
	c := s.Cookie("")
	c.MaxAge = -1
	return c
}
