// Package gateway authenticates, authorizes, and rate-limits realtime
// connections and their events. Authentication runs once per connection; the
// resulting ConnContext is what every subsequent guard consults.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "sockgate/internal/identity/domain"
	identityservice "sockgate/internal/identity/service"
	"sockgate/internal/revocation"
	"sockgate/internal/security"
	"sockgate/internal/telemetry"
	telemetrydomain "sockgate/internal/telemetry/domain"
	userdomain "sockgate/internal/user/domain"
)

const bearerPrefix = "bearer "

// Handshake carries the credential material of a connection attempt.
type Handshake struct {
	// Token is the token field of the connect payload, if any.
	Token string
	// Header is the handshake request's headers (Authorization: Bearer is honored).
	Header http.Header
	// RemoteAddr is the client's network address.
	RemoteAddr string
}

// IdentityResolver maps a verified subject and its token to a live identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, subjectID, token string) (*identitydomain.Identity, error)
}

// Authenticator orchestrates token verification, revocation lookup, and
// identity resolution on every new connection attempt.
type Authenticator struct {
	tokens      *security.TokenProvider
	revocations *revocation.Checker
	resolver    IdentityResolver
	emitter     telemetry.EventEmitter
}

// NewAuthenticator returns an Authenticator with the given collaborators.
// resolver may be nil for deployments without a persisted session table; the
// identity is then built from token claims alone.
func NewAuthenticator(tokens *security.TokenProvider, revocations *revocation.Checker, resolver IdentityResolver, emitter telemetry.EventEmitter) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		revocations: revocations,
		resolver:    resolver,
		emitter:     emitter,
	}
}

// Authenticate classifies a connection attempt. It never rejects for a missing
// credential: no token, a malformed token, and an expired token all yield an
// anonymous context (the latter two logged as security events) so viewers can
// still connect. It rejects hard — non-nil error, connection must be closed —
// for exactly three cases: wrong token type, revoked credential, and no live
// session for the credential.
func (a *Authenticator) Authenticate(ctx context.Context, hs Handshake) (*ConnContext, error) {
	cc := &ConnContext{
		ID:         uuid.New().String(),
		RemoteAddr: hs.RemoteAddr,
	}

	token := hs.Token
	if token == "" {
		token = extractBearer(hs.Header)
	}
	if token == "" {
		return cc, nil
	}

	claims, err := a.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, security.ErrWrongTokenType) {
			a.emit(telemetrydomain.EventAuthRejected, cc, "", "wrong token type")
			return nil, err
		}
		// Malformed or expired: degrade to anonymous, connection proceeds.
		a.emit(telemetrydomain.EventAuthFailed, cc, "", err.Error())
		return cc, nil
	}

	if a.revocations.IsRevoked(ctx, token, claims.Subject) {
		a.emit(telemetrydomain.EventAuthRejected, cc, claims.Subject, "token revoked")
		return nil, revocation.ErrTokenRevoked
	}

	var ident *identitydomain.Identity
	if a.resolver != nil {
		ident, err = a.resolver.Resolve(ctx, claims.Subject, token)
		if err != nil {
			if errors.Is(err, identityservice.ErrSessionNotFound) {
				a.emit(telemetrydomain.EventAuthRejected, cc, claims.Subject, "session not found")
			} else {
				a.emit(telemetrydomain.EventAuthRejected, cc, claims.Subject, "identity resolution failed")
			}
			return nil, err
		}
	} else {
		ident = &identitydomain.Identity{
			ID:          claims.Subject,
			DisplayName: claims.DisplayName,
			Role:        userdomain.Role(claims.Role),
			Status:      userdomain.UserStatusActive,
			IsActive:    true,
		}
	}

	cc.Authenticated = true
	cc.Identity = ident
	a.emit(telemetrydomain.EventAuthSucceeded, cc, ident.ID, "authenticated")
	return cc, nil
}

func (a *Authenticator) emit(eventType string, cc *ConnContext, identityID, reason string) {
	telemetry.EmitAsync(a.emitter, &telemetrydomain.SecurityEvent{
		EventType:    eventType,
		ConnectionID: cc.ID,
		IdentityID:   identityID,
		RemoteAddr:   cc.RemoteAddr,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	})
}

// extractBearer returns the Bearer token from headers, or "" if missing or malformed.
func extractBearer(h http.Header) string {
	if h == nil {
		return ""
	}
	v := strings.TrimSpace(h.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
