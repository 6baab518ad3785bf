package domain

import "time"

// Security event types emitted by the gateway.
const (
	EventAuthFailed        = "auth.failed"        // malformed or expired credential, degraded to anonymous
	EventAuthRejected      = "auth.rejected"      // hard rejection: wrong token type, revoked, session not found
	EventAuthSucceeded     = "auth.succeeded"     // connection authenticated
	EventAuthzDenied       = "authz.denied"       // guard denial on a single event
	EventRateLimitExceeded = "ratelimit.exceeded" // per-identity window quota exhausted
)

// SecurityEvent records an authentication failure, authorization denial, or
// rate-limit rejection with enough context for post-hoc auditing.
type SecurityEvent struct {
	EventType    string
	ConnectionID string
	IdentityID   string // empty for anonymous connections
	RemoteAddr   string
	Action       string // the attempted event name, if any
	Reason       string
	CreatedAt    time.Time
}
