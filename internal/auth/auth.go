// Package auth checks HTTP Basic credentials against the credential store.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
)

// Realm is sent in WWW-Authenticate challenges
const Realm = "jukebox"

// Digest returns the stored form of a password: base64 of its SHA-256 hash
func Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// CredentialLookup resolves a username and digest to the stored username
type CredentialLookup interface {
	Lookup(username, digest string) (string, bool)
}

// Authenticator verifies requests against a credential lookup
type Authenticator struct {
	Store CredentialLookup
}

// FromRequest extracts Basic credentials. ok is false when the header is
// missing or malformed.
func FromRequest(r *http.Request) (username, password string, ok bool) {
	return r.BasicAuth()
}

// Authenticate returns the stored username for the request's credentials.
// The second return value is the username the client claimed, for logging.
func (a *Authenticator) Authenticate(r *http.Request) (user string, claimed string, ok bool) {
	username, password, ok := FromRequest(r)
	if !ok {
		return "", "", false
	}
	if a == nil || a.Store == nil {
		return "", username, false
	}
	user, ok = a.Store.Lookup(username, Digest(password))
	return user, username, ok
}

// Challenge writes a 401 asking for Basic credentials
func Challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
