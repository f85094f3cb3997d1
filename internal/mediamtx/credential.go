package mediamtx

import (
	"encoding/base64"
	"sync"
)

// Credential is the operator's encoded Basic credential plus the display name it
// was built from. A zero Encoded value means "not authenticated".
type Credential struct {
	Encoded   string
	Principal string
}

// NewCredential encodes principal and secret the way HTTP Basic auth expects.
func NewCredential(principal, secret string) Credential {
	return Credential{
		Encoded:   base64.StdEncoding.EncodeToString([]byte(principal + ":" + secret)),
		Principal: principal,
	}
}

// HeaderValue returns the Authorization header value, or "" if Encoded is empty.
func (c Credential) HeaderValue() string {
	if c.Encoded == "" {
		return ""
	}
	return "Basic " + c.Encoded
}

// CredentialStore holds the current session credential in memory only.
// It is read by every API call and written only by login/logout.
type CredentialStore struct {
	mu   sync.RWMutex
	cred Credential
}

// NewCredentialStore returns an empty (unauthenticated) store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Set encodes and stores the pair. The secret is not validated here.
func (s *CredentialStore) Set(principal, secret string) {
	s.Store(NewCredential(principal, secret))
}

// Store replaces the held credential with an already encoded one.
func (s *CredentialStore) Store(c Credential) {
	s.mu.Lock()
	s.cred = c
	s.mu.Unlock()
}

// Clear removes the credential.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	s.cred = Credential{}
	s.mu.Unlock()
}

// IsAuthenticated reports whether an encoded credential is present.
func (s *CredentialStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Encoded != ""
}

// Principal returns the display name of the stored credential.
func (s *CredentialStore) Principal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.Encoded == "" {
		return ""
	}
	return s.cred.Principal
}

// AuthorizationHeaderValue returns "Basic <encoded>" or "" when unauthenticated.
func (s *CredentialStore) AuthorizationHeaderValue() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.HeaderValue()
}
