// Package revocation checks whether a credential or subject has been
// explicitly invalidated before its natural expiry (logout, ban, session
// rotation). The source of truth is a fast key-value store written by the
// auth authority; the gateway only reads it.
package revocation

import (
	"context"
	"errors"
	"log"

	"sockgate/internal/security"
)

// ErrTokenRevoked is returned when a presented credential has been invalidated.
var ErrTokenRevoked = errors.New("token revoked")

// Store is the key-value lookup the checker runs against.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
}

const (
	tokenKeyPrefix   = "revoked:token:"
	subjectKeyPrefix = "revoked:subject:"
)

// TokenKey returns the store key marking a single credential revoked.
// Keys carry the token's SHA-256 hash, never the raw token.
func TokenKey(token string) string {
	return tokenKeyPrefix + security.HashToken(token)
}

// SubjectKey returns the store key marking every credential of a subject revoked.
func SubjectKey(subjectID string) string {
	return subjectKeyPrefix + subjectID
}

// Checker answers revocation queries with an explicit failure policy.
//
// When the store is unreachable, failClosed=false (the default) treats the
// credential as not revoked so connections stay available during a store
// outage; failClosed=true treats it as revoked. Both outcomes are logged.
type Checker struct {
	store      Store
	failClosed bool
}

// NewChecker returns a Checker over store. store may be nil, in which case
// nothing is ever considered revoked (revocation disabled by configuration).
func NewChecker(store Store, failClosed bool) *Checker {
	return &Checker{store: store, failClosed: failClosed}
}

// IsRevoked reports whether the credential or its subject has been revoked.
// A store failure resolves per the checker's failure policy and never
// propagates as an error to the caller.
func (c *Checker) IsRevoked(ctx context.Context, token, subjectID string) bool {
	if c == nil || c.store == nil {
		return false
	}
	for _, key := range []string{TokenKey(token), SubjectKey(subjectID)} {
		hit, err := c.store.Exists(ctx, key)
		if err != nil {
			log.Printf("revocation: store lookup failed (fail-closed=%v): %v", c.failClosed, err)
			return c.failClosed
		}
		if hit {
			return true
		}
	}
	return false
}
