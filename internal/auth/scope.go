package auth

import (
	"fmt"
	"strings"
)

// Scope is a named permission unit granted to an access token.
type Scope string

// The full enumerated scope set. Tokens are issued with DefaultScopes
// unless the caller narrows them.
const (
	ScopeRead    Scope = "read"
	ScopeWrite   Scope = "write"
	ScopeProfile Scope = "profile"
)

// DefaultScopes returns the scopes granted when none are requested
// explicitly: read write profile.
func DefaultScopes() ScopeSet {
	return NewScopeSet(ScopeRead, ScopeWrite, ScopeProfile)
}

// ScopeSet is a set of scopes. The zero value is the empty set.
//
// Tokens carry scopes on the wire as a single space-separated string
// ("read write profile", the OAuth2 convention); in code we keep a set so
// the authorization check is a plain subset test instead of repeated
// string splitting.
type ScopeSet map[Scope]struct{}

// NewScopeSet builds a set from the given scopes.
func NewScopeSet(scopes ...Scope) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return set
}

// ParseScopes parses a space-separated scope string as found in a token's
// "scope" claim. Unknown scope names are rejected — the claim is produced
// by this server, so anything outside the enumerated set means a mangled
// or foreign token.
func ParseScopes(s string) (ScopeSet, error) {
	set := make(ScopeSet)
	for _, field := range strings.Fields(s) {
		switch scope := Scope(field); scope {
		case ScopeRead, ScopeWrite, ScopeProfile:
			set[scope] = struct{}{}
		default:
			return nil, fmt.Errorf("auth: unknown scope %q", field)
		}
	}
	return set, nil
}

// Contains reports whether the set holds the given scope.
func (s ScopeSet) Contains(scope Scope) bool {
	_, ok := s[scope]
	return ok
}

// ContainsAll reports whether every scope in required is present, i.e.
// required ⊆ s. An empty required set is trivially satisfied.
func (s ScopeSet) ContainsAll(required ScopeSet) bool {
	for scope := range required {
		if !s.Contains(scope) {
			return false
		}
	}
	return true
}

// String joins the scopes with single spaces in a stable order
// (read, write, profile), the form stored in the "scope" claim.
func (s ScopeSet) String() string {
	// Stable order keeps issued tokens deterministic for a given set.
	ordered := []Scope{ScopeRead, ScopeWrite, ScopeProfile}
	parts := make([]string, 0, len(s))
	for _, scope := range ordered {
		if s.Contains(scope) {
			parts = append(parts, string(scope))
		}
	}
	return strings.Join(parts, " ")
}
