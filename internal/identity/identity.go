// Package identity is the boundary to the external identity provider. The
// auction core only ever sees an opaque caller id, a display contact and a
// privilege flag; credential verification happens upstream.
package identity

import "errors"

// ErrUnauthenticated reports a request that carries no caller identity.
var ErrUnauthenticated = errors.New("caller is not authenticated")

// User is the resolved identity of the current caller.
type User struct {
	ID      string
	Contact string
}

// Provider resolves callers and answers privilege checks.
type Provider interface {
	// Caller extracts the authenticated identity from transport metadata.
	// get returns the value of a named header, empty if absent.
	Caller(get func(key string) string) (User, error)

	// IsPrivileged reports whether userID may create and close auctions.
	IsPrivileged(userID string) bool
}

// HeaderProvider trusts identity headers injected by the authenticating
// reverse proxy in front of this service.
type HeaderProvider struct {
	adminID string
}

func NewHeaderProvider(adminID string) *HeaderProvider {
	return &HeaderProvider{adminID: adminID}
}

func (p *HeaderProvider) Caller(get func(key string) string) (User, error) {
	id := get("X-User-Id")
	if id == "" {
		return User{}, ErrUnauthenticated
	}
	contact := get("X-User-Email")
	if contact == "" {
		contact = id
	}
	return User{ID: id, Contact: contact}, nil
}

// IsPrivileged compares the caller against the configured admin id. An
// empty configuration means nobody is privileged.
func (p *HeaderProvider) IsPrivileged(userID string) bool {
	return p.adminID != "" && userID == p.adminID
}
