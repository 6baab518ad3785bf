package domain

import "time"

// Session is a live credential binding: one row per issued access token.
// A connection is only admitted when a non-revoked, non-expired session row
// exists for exactly the presented token.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string // SHA-256 hash of the bound access token
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil when not revoked
	LastUsedAt *time.Time
	IPAddress  string
	CreatedAt  time.Time
}

// Live reports whether the session admits connections at the given time.
func (s *Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
