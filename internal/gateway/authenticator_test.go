package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	identitydomain "sockgate/internal/identity/domain"
	identityservice "sockgate/internal/identity/service"
	"sockgate/internal/revocation"
	"sockgate/internal/security"
	telemetrydomain "sockgate/internal/telemetry/domain"
	userdomain "sockgate/internal/user/domain"
)

type memRevocationStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (s *memRevocationStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

type stubResolver struct {
	identities map[string]*identitydomain.Identity // keyed by subjectID
	err        error
}

func (r *stubResolver) Resolve(_ context.Context, subjectID, _ string) (*identitydomain.Identity, error) {
	if r.err != nil {
		return nil, r.err
	}
	if ident, ok := r.identities[subjectID]; ok {
		return ident, nil
	}
	return nil, identityservice.ErrSessionNotFound
}

type captureEmitter struct {
	mu     sync.Mutex
	events []*telemetrydomain.SecurityEvent
}

func (e *captureEmitter) Emit(_ context.Context, ev *telemetrydomain.SecurityEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *captureEmitter) waitForEvent(t *testing.T, eventType string) *telemetrydomain.SecurityEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		for _, ev := range e.events {
			if ev.EventType == eventType {
				e.mu.Unlock()
				return ev
			}
		}
		e.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event emitted", eventType)
	return nil
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *security.TokenProvider, *memRevocationStore, *stubResolver, *captureEmitter) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	store := &memRevocationStore{keys: map[string]bool{}}
	resolver := &stubResolver{identities: map[string]*identitydomain.Identity{
		"u1": {
			ID:          "u1",
			DisplayName: "Jane Doe",
			Role:        userdomain.RoleUser,
			Status:      userdomain.UserStatusActive,
			IsActive:    true,
			SessionID:   "s1",
		},
	}}
	emitter := &captureEmitter{}
	a := NewAuthenticator(tokens, revocation.NewChecker(store, false), resolver, emitter)
	return a, tokens, store, resolver, emitter
}

func TestAuthenticate_NoToken_Anonymous(t *testing.T) {
	a, _, _, _, _ := newTestAuthenticator(t)

	cc, err := a.Authenticate(context.Background(), Handshake{RemoteAddr: "203.0.113.9:4040"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if cc.Authenticated {
		t.Error("connection without token should be anonymous")
	}
	if cc.Identity != nil {
		t.Error("anonymous context should have nil identity")
	}
	if cc.ID == "" {
		t.Error("connection id should be set")
	}
}

func TestAuthenticate_MalformedToken_Anonymous(t *testing.T) {
	a, _, _, _, emitter := newTestAuthenticator(t)

	cc, err := a.Authenticate(context.Background(), Handshake{Token: "not-a-jwt", RemoteAddr: "203.0.113.9:4040"})
	if err != nil {
		t.Fatalf("Authenticate with malformed token should not error, got %v", err)
	}
	if cc.Authenticated {
		t.Error("malformed token should degrade to anonymous")
	}
	emitter.waitForEvent(t, telemetrydomain.EventAuthFailed)
}

func TestAuthenticate_ExpiredToken_Anonymous(t *testing.T) {
	a, _, _, _, _ := newTestAuthenticator(t)
	expiring, err := security.NewExpiringTestTokenProvider(-time.Minute)
	if err != nil {
		t.Fatalf("NewExpiringTestTokenProvider: %v", err)
	}
	token, _, _, err := expiring.IssueAccess("u1", "Jane Doe", "jane@example.com", "USER")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	cc, err := a.Authenticate(context.Background(), Handshake{Token: token})
	if err != nil {
		t.Fatalf("Authenticate with expired token should not error, got %v", err)
	}
	if cc.Authenticated {
		t.Error("expired token should degrade to anonymous")
	}
}

func TestAuthenticate_WrongTokenType_HardReject(t *testing.T) {
	a, tokens, _, _, _ := newTestAuthenticator(t)
	refresh, _, _, err := tokens.IssueWithType("u1", "Jane Doe", "jane@example.com", "USER", "refresh")
	if err != nil {
		t.Fatalf("IssueWithType: %v", err)
	}

	_, err = a.Authenticate(context.Background(), Handshake{Token: refresh})
	if !errors.Is(err, security.ErrWrongTokenType) {
		t.Errorf("Authenticate with refresh token: want ErrWrongTokenType, got %v", err)
	}
}

func TestAuthenticate_RevokedToken_HardReject(t *testing.T) {
	a, tokens, store, _, _ := newTestAuthenticator(t)
	token, _, _, err := tokens.IssueAccess("u1", "Jane Doe", "jane@example.com", "USER")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	store.keys[revocation.TokenKey(token)] = true

	_, err = a.Authenticate(context.Background(), Handshake{Token: token})
	if !errors.Is(err, revocation.ErrTokenRevoked) {
		t.Errorf("Authenticate with revoked token: want ErrTokenRevoked, got %v", err)
	}
}

func TestAuthenticate_RevokedSubject_HardReject(t *testing.T) {
	a, tokens, store, _, _ := newTestAuthenticator(t)
	token, _, _, err := tokens.IssueAccess("u1", "Jane Doe", "jane@example.com", "USER")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	store.keys[revocation.SubjectKey("u1")] = true

	_, err = a.Authenticate(context.Background(), Handshake{Token: token})
	if !errors.Is(err, revocation.ErrTokenRevoked) {
		t.Errorf("Authenticate with revoked subject: want ErrTokenRevoked, got %v", err)
	}
}

func TestAuthenticate_SessionNotFound_HardReject(t *testing.T) {
	a, tokens, _, _, _ := newTestAuthenticator(t)
	token, _, _, err := tokens.IssueAccess("u2", "Nobody", "nobody@example.com", "USER")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	_, err = a.Authenticate(context.Background(), Handshake{Token: token})
	if !errors.Is(err, identityservice.ErrSessionNotFound) {
		t.Errorf("Authenticate without session: want ErrSessionNotFound, got %v", err)
	}
}

func TestAuthenticate_ValidToken_Authenticated(t *testing.T) {
	a, tokens, _, _, _ := newTestAuthenticator(t)
	token, _, _, err := tokens.IssueAccess("u1", "Jane Doe", "jane@example.com", "USER")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	cc, err := a.Authenticate(context.Background(), Handshake{Token: token, RemoteAddr: "203.0.113.9:4040"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !cc.Authenticated {
		t.Fatal("connection should be authenticated")
	}
	if cc.Identity.ID != "u1" || cc.Identity.DisplayName != "Jane Doe" {
		t.Errorf("identity = %+v, want resolved record", cc.Identity)
	}
	if cc.Identity.SessionID != "s1" {
		t.Errorf("session id = %q, want %q", cc.Identity.SessionID, "s1")
	}
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	a, tokens, _, _, _ := newTestAuthenticator(t)
	token, _, _, err := tokens.IssueAccess("u1", "Jane Doe", "jane@example.com", "USER")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	cc, err := a.Authenticate(context.Background(), Handshake{Header: h})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !cc.Authenticated {
		t.Error("bearer header credential should authenticate")
	}
}

func TestAuthenticate_NilResolver_ClaimsIdentity(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	a := NewAuthenticator(tokens, revocation.NewChecker(nil, false), nil, nil)
	token, _, _, err := tokens.IssueAccess("u9", "Claims Only", "c@example.com", "MODERATOR")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	cc, err := a.Authenticate(context.Background(), Handshake{Token: token})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !cc.Authenticated {
		t.Fatal("connection should be authenticated")
	}
	if cc.Identity.ID != "u9" || cc.Identity.Role != userdomain.RoleModerator {
		t.Errorf("identity = %+v, want claims-derived record", cc.Identity)
	}
}

func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  string
	}{
		{"standard", "Bearer tok123", "tok123"},
		{"lowercase scheme", "bearer tok123", "tok123"},
		{"padded", "  Bearer   tok123  ", "tok123"},
		{"missing scheme", "tok123", ""},
		{"empty", "", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.value != "" {
				h.Set("Authorization", tc.value)
			}
			if got := extractBearer(h); got != tc.want {
				t.Errorf("extractBearer(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
