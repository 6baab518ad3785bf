package gateway

import (
	identitydomain "sockgate/internal/identity/domain"
)

// ConnContext is the per-connection authentication result. It is created once
// by the Authenticator and passed explicitly to every guard and handler;
// downstream code never re-verifies credentials, only branches on
// Authenticated.
type ConnContext struct {
	// ID uniquely identifies the connection for audit events.
	ID string
	// RemoteAddr is the client's network address.
	RemoteAddr string
	// Authenticated is true when Identity is set.
	Authenticated bool
	// Identity is the resolved identity, nil for anonymous connections.
	Identity *identitydomain.Identity
}

// RateKey returns the rate-limiter key for this connection: the identity id
// when authenticated, otherwise the remote address so anonymous floods are
// still bounded per-origin.
func (c *ConnContext) RateKey() string {
	if c.Authenticated && c.Identity != nil {
		return c.Identity.ID
	}
	return c.RemoteAddr
}

// IdentityID returns the identity id or "" for anonymous connections.
func (c *ConnContext) IdentityID() string {
	if c.Identity != nil {
		return c.Identity.ID
	}
	return ""
}
