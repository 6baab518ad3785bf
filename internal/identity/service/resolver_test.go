package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sockgate/internal/security"
	sessiondomain "sockgate/internal/session/domain"
	userdomain "sockgate/internal/user/domain"
)

type memUserRepo struct {
	mu          sync.Mutex
	byID        map[string]*userdomain.User
	lastActive  map[string]time.Time
	getErr      error
	updateErr   error
	updateCalls int
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.byID[id], nil
}

func (r *memUserRepo) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.lastActive == nil {
		r.lastActive = map[string]time.Time{}
	}
	r.lastActive[id] = at
	return nil
}

type memSessionRepo struct {
	mu          sync.Mutex
	byKey       map[string]*sessiondomain.Session // userID + "/" + tokenHash
	lastUsed    map[string]time.Time
	updateCalls int
}

func (r *memSessionRepo) GetByUserAndTokenHash(ctx context.Context, userID, tokenHash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[userID+"/"+tokenHash], nil
}

func (r *memSessionRepo) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.lastUsed == nil {
		r.lastUsed = map[string]time.Time{}
	}
	r.lastUsed[id] = at
	return nil
}

func newTestRepos(t *testing.T, token string) (*memUserRepo, *memSessionRepo) {
	t.Helper()
	users := &memUserRepo{byID: map[string]*userdomain.User{
		"u1": {
			ID:          "u1",
			Email:       "jane@example.com",
			DisplayName: "Jane Doe",
			Role:        userdomain.RoleUser,
			Status:      userdomain.UserStatusActive,
		},
	}}
	sessions := &memSessionRepo{byKey: map[string]*sessiondomain.Session{
		"u1/" + security.HashToken(token): {
			ID:        "s1",
			UserID:    "u1",
			TokenHash: security.HashToken(token),
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		},
	}}
	return users, sessions
}

func TestResolver_Resolve(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	r := NewResolver(users, sessions)

	ident, err := r.Resolve(context.Background(), "u1", "token-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ident.ID != "u1" || ident.DisplayName != "Jane Doe" || ident.Role != userdomain.RoleUser {
		t.Errorf("identity = %+v, want u1/Jane Doe/USER", ident)
	}
	if !ident.IsActive {
		t.Error("identity should be active")
	}
	if ident.SessionID != "s1" {
		t.Errorf("session id = %q, want %q", ident.SessionID, "s1")
	}
	if sessions.updateCalls != 1 {
		t.Errorf("session last-used updates = %d, want 1", sessions.updateCalls)
	}
	if users.updateCalls != 1 {
		t.Errorf("user last-active updates = %d, want 1", users.updateCalls)
	}
}

func TestResolver_NoSessionForToken(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	r := NewResolver(users, sessions)

	// Valid user, but the session is bound to a different token.
	if _, err := r.Resolve(context.Background(), "u1", "other-token"); err != ErrSessionNotFound {
		t.Errorf("Resolve with unbound token: want ErrSessionNotFound, got %v", err)
	}
}

func TestResolver_RevokedSession(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	revoked := time.Now().Add(-time.Minute)
	sessions.byKey["u1/"+security.HashToken("token-1")].RevokedAt = &revoked
	r := NewResolver(users, sessions)

	if _, err := r.Resolve(context.Background(), "u1", "token-1"); err != ErrSessionNotFound {
		t.Errorf("Resolve with revoked session: want ErrSessionNotFound, got %v", err)
	}
}

func TestResolver_ExpiredSession(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	sessions.byKey["u1/"+security.HashToken("token-1")].ExpiresAt = time.Now().Add(-time.Minute)
	r := NewResolver(users, sessions)

	if _, err := r.Resolve(context.Background(), "u1", "token-1"); err != ErrSessionNotFound {
		t.Errorf("Resolve with expired session: want ErrSessionNotFound, got %v", err)
	}
}

func TestResolver_DisabledUser(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	users.byID["u1"].Status = userdomain.UserStatusDisabled
	r := NewResolver(users, sessions)

	if _, err := r.Resolve(context.Background(), "u1", "token-1"); err != ErrSessionNotFound {
		t.Errorf("Resolve with disabled user: want ErrSessionNotFound, got %v", err)
	}
}

func TestResolver_BestEffortWritesDoNotAbort(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	users.updateErr = errors.New("write failed")
	r := NewResolver(users, sessions)

	if _, err := r.Resolve(context.Background(), "u1", "token-1"); err != nil {
		t.Errorf("Resolve should succeed despite last-active write failure, got %v", err)
	}
}

func TestResolver_CancelledContextSkipsWrites(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	r := NewResolver(users, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The lookup repos here ignore cancellation, so Resolve proceeds; only the
	// side-effecting updates must be skipped for a dead connection.
	if _, err := r.Resolve(ctx, "u1", "token-1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sessions.updateCalls != 0 || users.updateCalls != 0 {
		t.Errorf("bookkeeping writes after cancellation: sessions=%d users=%d, want 0/0",
			sessions.updateCalls, users.updateCalls)
	}
}

func TestResolver_DatabaseErrorPropagates(t *testing.T) {
	users, sessions := newTestRepos(t, "token-1")
	users.getErr = errors.New("db down")
	r := NewResolver(users, sessions)

	_, err := r.Resolve(context.Background(), "u1", "token-1")
	if err == nil || err == ErrSessionNotFound {
		t.Errorf("Resolve with db failure: want raw error, got %v", err)
	}
}
