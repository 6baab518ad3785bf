package service

import (
	"context"
	"errors"
	"log"
	"time"

	identitydomain "sockgate/internal/identity/domain"
	"sockgate/internal/security"
	sessiondomain "sockgate/internal/session/domain"
	userdomain "sockgate/internal/user/domain"
)

// ErrSessionNotFound is returned when no live session row exists for the
// presented credential, regardless of the credential's own validity. A JWT
// whose session was terminated must not authenticate (replay defense).
var ErrSessionNotFound = errors.New("session not found")

// UserRepo is the minimal user repository needed by the resolver.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	UpdateLastActive(ctx context.Context, id string, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the resolver.
type SessionRepo interface {
	GetByUserAndTokenHash(ctx context.Context, userID, tokenHash string) (*sessiondomain.Session, error)
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
}

// Resolver maps a verified, non-revoked credential to a live identity record.
type Resolver struct {
	userRepo    UserRepo
	sessionRepo SessionRepo
}

// NewResolver returns a Resolver with the given dependencies.
func NewResolver(userRepo UserRepo, sessionRepo SessionRepo) *Resolver {
	return &Resolver{userRepo: userRepo, sessionRepo: sessionRepo}
}

// Resolve returns the identity for subjectID, requiring a live session row
// bound to exactly the presented token. A missing, revoked, or expired session
// and a missing or inactive user all resolve to ErrSessionNotFound; database
// failures are returned as-is.
//
// Side effects: refreshes the session's last-used and the user's last-active
// markers. These writes are best-effort; failures are logged and never abort
// resolution. They are skipped when ctx is already cancelled so a connection
// that died during authentication leaves no bookkeeping behind.
func (r *Resolver) Resolve(ctx context.Context, subjectID, token string) (*identitydomain.Identity, error) {
	sess, err := r.sessionRepo.GetByUserAndTokenHash(ctx, subjectID, security.HashToken(token))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if sess == nil || !sess.Live(now) {
		return nil, ErrSessionNotFound
	}

	user, err := r.userRepo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		return nil, ErrSessionNotFound
	}

	if ctx.Err() == nil {
		if err := r.sessionRepo.UpdateLastUsed(ctx, sess.ID, now); err != nil {
			log.Printf("identity: update session last used: %v", err)
		}
		if err := r.userRepo.UpdateLastActive(ctx, user.ID, now); err != nil {
			log.Printf("identity: update user last active: %v", err)
		}
	}

	return &identitydomain.Identity{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Status:      user.Status,
		IsActive:    user.IsActive(),
		SessionID:   sess.ID,
	}, nil
}
