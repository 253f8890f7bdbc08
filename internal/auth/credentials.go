package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/userkit/user-service/internal/domain"
)

// ErrCredentialMismatch is returned when a submitted pair does not match.
var ErrCredentialMismatch = errors.New("credential mismatch")

// Credential is a stored username/password pair.
type Credential struct {
	Username string
	Password string
}

// IdentityStore looks up the credential registered for a username.
type IdentityStore interface {
	Lookup(username string) (Credential, bool)
}

// StaticIdentityStore serves a single credential loaded from configuration.
type StaticIdentityStore struct {
	cred Credential
}

// NewStaticIdentityStore returns a store holding one administrator credential.
func NewStaticIdentityStore(username, password string) *StaticIdentityStore {
	return &StaticIdentityStore{cred: Credential{Username: username, Password: password}}
}

// Lookup matches the username exactly (case-sensitive).
func (s *StaticIdentityStore) Lookup(username string) (Credential, bool) {
	if username == "" || username != s.cred.Username {
		return Credential{}, false
	}
	return s.cred, true
}

// CredentialVerifier checks submitted credentials against an IdentityStore.
type CredentialVerifier struct {
	store IdentityStore
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(store IdentityStore) *CredentialVerifier {
	return &CredentialVerifier{store: store}
}

// Verify reports whether the pair matches a stored credential. Passwords are
// hashed and compared in constant time so neither content nor length leaks.
func (v *CredentialVerifier) Verify(username, password string) bool {
	submitted := sha256.Sum256([]byte(password))
	cred, ok := v.store.Lookup(username)
	if !ok {
		subtle.ConstantTimeCompare(submitted[:], submitted[:])
		return false
	}
	stored := sha256.Sum256([]byte(cred.Password))
	return subtle.ConstantTimeCompare(submitted[:], stored[:]) == 1
}

// Authenticate returns the verified identity or ErrCredentialMismatch.
func (v *CredentialVerifier) Authenticate(username, password string) (domain.Identity, error) {
	if !v.Verify(username, password) {
		return "", ErrCredentialMismatch
	}
	return domain.Identity(username), nil
}
